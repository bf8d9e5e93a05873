package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	pkgdiscord "ctfbot/pkg/discord"
)

// Bot is the Discord adapter.
type Bot struct {
	session *discordgo.Session
	guildID string
	handler *Handler
	log     zerolog.Logger
}

// NewBot wires the interaction handlers onto an existing session. The
// session is shared with the Directory and Notifier adapters.
func NewBot(session *discordgo.Session, guildID string, handler *Handler, log zerolog.Logger) *Bot {
	bot := &Bot{
		session: session,
		guildID: guildID,
		handler: handler,
		log:     log,
	}
	bot.setupHandlers()
	return bot
}

func (b *Bot) setupHandlers() {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info().Str("user", r.User.Username).Msg("Discord session ready")
	})
	b.session.AddHandler(b.handleInteraction)
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == commandName {
			b.handler.HandleCommand(s, i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == createEventModalID {
			b.handler.HandleCreateEventModal(s, i)
		}
	case discordgo.InteractionMessageComponent:
		if strings.HasPrefix(i.MessageComponentData().CustomID, pkgdiscord.JoinButtonPrefix) {
			b.handler.HandleJoin(s, i)
		}
	}
}

// Start opens the session, registers the application command and blocks
// until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open Discord session: %w", err)
	}
	defer b.session.Close()

	if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.guildID, commandDefinition()); err != nil {
		return fmt.Errorf("register /%s command: %w", commandName, err)
	}

	b.log.Info().Str("guild_id", b.guildID).Msg("bot is online")
	<-ctx.Done()
	return nil
}
