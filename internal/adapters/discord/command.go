package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
	pkgdiscord "ctfbot/pkg/discord"
)

const (
	commandName        = "ctf"
	createEventModalID = "ctf_create_event_modal"

	listPageSize = 50
)

// commandDefinition is the /ctf application command registered on startup.
func commandDefinition() *discordgo.ApplicationCommand {
	keyChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(settings.Keys))
	for _, key := range settings.Keys {
		keyChoices = append(keyChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  key.String(),
			Value: key.String(),
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "Track CTF events and their channels",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List tracked events",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "kind",
						Description: "Which events to list",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "ctftime", Value: "ctftime"},
							{Name: "custom", Value: "custom"},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: "Join an event's channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "id",
						Description: "Event id (see /ctf list)",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "new",
				Description: "Create a custom event with its own channel",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "archive",
				Description: "Archive an event (project managers only)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "id",
						Description: "Event id",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "reason",
						Description: "Why the event is archived",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "relink",
				Description: "Re-bind an event to an existing channel (project managers only)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "id",
						Description: "Event id",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Channel to bind",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "settings",
				Description: "Guild settings (project managers only)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "show",
						Description: "Show the current settings",
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "set",
						Description: "Set one setting",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "key",
								Description: "Setting to change",
								Required:    true,
								Choices:     keyChoices,
							},
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "value",
								Description: "Id of the channel, category or role",
								Required:    true,
							},
						},
					},
				},
			},
		},
	}
}

func (h *Handler) isProjectManager(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	pmRole := h.store.Current().PMRoleID
	if pmRole == "" {
		return false
	}
	for _, role := range i.Member.Roles {
		if role == pmRole {
			return true
		}
	}
	return false
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (h *Handler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	switch sub.Name {
	case "list":
		h.handleList(s, i, sub)
	case "join":
		h.handleJoinCommand(s, i, sub)
	case "new":
		h.handleNew(s, i)
	case "archive":
		h.handleArchive(s, i, sub)
	case "relink":
		h.handleRelink(s, i, sub)
	case "settings":
		h.handleSettings(s, i, sub)
	}
}

func (h *Handler) handleList(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	kind := "ctftime"
	if opt, ok := optionMap(sub.Options)["kind"]; ok {
		kind = opt.StringValue()
	}

	ctx := context.Background()
	now := time.Now()
	var (
		events []entities.Event
		err    error
		title  string
	)
	if kind == "custom" {
		title = "🚩 Custom events"
		events, err = h.events.ListCustomEvents(ctx, output.Keyset{Limit: listPageSize})
	} else {
		title = "🚩 CTF events tracked"
		events, err = h.events.ListCTFTimeEvents(ctx, now, output.Keyset{Limit: listPageSize})
	}
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("list events failed")
		respondEphemeral(s, i.Interaction, h.errorReply(err))
		return
	}
	if len(events) == 0 {
		respondEphemeral(s, i.Interaction, h.translate("reply.no_events", nil))
		return
	}

	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "**[id=%d]** %s", ev.ID, ev.Title)
		if ev.Running(now) {
			b.WriteString(" · running")
		}
		if !ev.StartAt.IsZero() && !ev.FinishAt.IsZero() {
			fmt.Fprintf(&b, "\n%s → %s",
				pkgdiscord.FormatTimestamp(ev.StartAt), pkgdiscord.FormatTimestamp(ev.FinishAt))
		}
		if ev.ChannelID != "" {
			fmt.Fprintf(&b, " · <#%s>", ev.ChannelID)
		}
		b.WriteString("\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: b.String(),
		Color:       output.NoticeGreen,
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (h *Handler) handleJoinCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	eventID := optionMap(sub.Options)["id"].IntValue()

	deferEphemeral(s, i.Interaction)

	already, err := h.events.CreateOrJoin(context.Background(), eventID, interactionUserID(i))
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

func (h *Handler) handleNew(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: createEventModalID,
			Title:    "Create a custom event",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "title",
						Label:     "Event title",
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: 100,
					},
				}},
			},
		},
	})
}

func (h *Handler) handleArchive(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	if !h.isProjectManager(i) {
		respondEphemeral(s, i.Interaction, h.translate("reply.permission_denied", nil))
		return
	}
	opts := optionMap(sub.Options)
	eventID := opts["id"].IntValue()
	reason := opts["reason"].StringValue()

	deferEphemeral(s, i.Interaction)

	if err := h.events.Archive(context.Background(), eventID, reason); err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("archive failed")
		followupEphemeral(s, i.Interaction, h.errorReply(err))
		return
	}
	followupEphemeral(s, i.Interaction, h.translate("reply.archived", map[string]any{"ID": eventID}))
}

func (h *Handler) handleRelink(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	if !h.isProjectManager(i) {
		respondEphemeral(s, i.Interaction, h.translate("reply.permission_denied", nil))
		return
	}
	opts := optionMap(sub.Options)
	eventID := opts["id"].IntValue()
	channel := opts["channel"].ChannelValue(s)
	if channel == nil {
		respondEphemeral(s, i.Interaction, h.translate("reply.internal_error", nil))
		return
	}

	if err := h.events.LinkChannel(context.Background(), eventID, channel.ID); err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Str("channel_id", channel.ID).Msg("relink failed")
		respondEphemeral(s, i.Interaction, h.errorReply(err))
		return
	}
	respondEphemeral(s, i.Interaction, h.translate("reply.relinked", map[string]any{
		"ID":      eventID,
		"Channel": fmt.Sprintf("<#%s>", channel.ID),
	}))
}

func (h *Handler) handleSettings(s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	if !h.isProjectManager(i) {
		respondEphemeral(s, i.Interaction, h.translate("reply.permission_denied", nil))
		return
	}
	if len(group.Options) == 0 {
		return
	}
	sub := group.Options[0]
	switch sub.Name {
	case "show":
		h.handleSettingsShow(s, i)
	case "set":
		h.handleSettingsSet(s, i, sub)
	}
}

func (h *Handler) handleSettingsShow(s *discordgo.Session, i *discordgo.InteractionCreate) {
	statuses := h.settings.Describe(context.Background())

	fields := make([]*discordgo.MessageEmbedField, 0, len(statuses))
	for _, st := range statuses {
		value := "not set"
		switch {
		case st.OK:
			value = fmt.Sprintf("✅ %s (`%s`)", st.Name, st.Value)
		case st.Value != "":
			value = fmt.Sprintf("❌ `%s` no longer exists", st.Value)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s · %s", st.Key, st.Description),
			Value: value,
		})
	}
	embed := &discordgo.MessageEmbed{
		Title:  "⚙️ Guild settings",
		Color:  output.NoticeBlue,
		Fields: fields,
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (h *Handler) handleSettingsSet(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(sub.Options)
	key, err := settings.ParseKey(opts["key"].StringValue())
	if err != nil {
		respondEphemeral(s, i.Interaction, h.translate("reply.internal_error", nil))
		return
	}
	value := strings.TrimSpace(opts["value"].StringValue())

	name, err := h.settings.Update(context.Background(), key, value)
	if err != nil {
		h.log.Warn().Err(err).Stringer("key", key).Str("value", value).Msg("setting update rejected")
		respondEphemeral(s, i.Interaction, err.Error())
		return
	}
	respondEphemeral(s, i.Interaction, h.translate("reply.setting_updated", map[string]any{
		"Key":  key.String(),
		"Name": name,
	}))
}
