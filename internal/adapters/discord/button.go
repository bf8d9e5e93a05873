package discord

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	pkgdiscord "ctfbot/pkg/discord"
)

// HandleJoin reacts to a join button press: the custom id carries the
// database event id.
func (h *Handler) HandleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	eventID, err := strconv.ParseInt(strings.TrimPrefix(customID, pkgdiscord.JoinButtonPrefix), 10, 64)
	if err != nil {
		h.log.Warn().Str("custom_id", customID).Msg("malformed join button id")
		return
	}

	// Channel creation can take longer than the interaction deadline.
	deferEphemeral(s, i.Interaction)

	ctx := context.Background()
	already, err := h.events.CreateOrJoin(ctx, eventID, interactionUserID(i))
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("join failed")
		followupEphemeral(s, i.Interaction, h.errorReply(err))
		return
	}
	if already {
		followupEphemeral(s, i.Interaction, h.translate("reply.already_joined", nil))
		return
	}
	followupEphemeral(s, i.Interaction, h.translate("reply.joined", nil))
}
