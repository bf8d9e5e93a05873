package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	pkgdiscord "ctfbot/pkg/discord"
)

// HandleCreateEventModal handles the custom-event creation modal submit.
func (h *Handler) HandleCreateEventModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	title := strings.TrimSpace(pkgdiscord.TextInputValue(data, "title"))
	if title == "" {
		respondEphemeral(s, i.Interaction, h.translate("reply.internal_error", nil))
		return
	}

	deferEphemeral(s, i.Interaction)

	ev, err := h.events.CreateCustomEvent(context.Background(), title, interactionUserID(i))
	if err != nil {
		h.log.Error().Err(err).Str("title", title).Msg("custom event creation failed")
		followupEphemeral(s, i.Interaction, h.errorReply(err))
		return
	}
	followupEphemeral(s, i.Interaction, h.translate("reply.custom_created", map[string]any{
		"Title":   ev.Title,
		"Channel": fmt.Sprintf("<#%s>", ev.ChannelID),
	}))
}
