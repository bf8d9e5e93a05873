package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
	pkgdiscord "ctfbot/pkg/discord"
)

var _ output.Notifier = (*Notifier)(nil)

// Notifier posts notices as embeds, with a join button when the notice
// carries an event id.
type Notifier struct {
	session *discordgo.Session
	store   *settings.Store
}

func NewNotifier(session *discordgo.Session, store *settings.Store) *Notifier {
	return &Notifier{session: session, store: store}
}

func (n *Notifier) send(ctx context.Context, channelID string, notice output.Notice) error {
	msg := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{pkgdiscord.BuildNoticeEmbed(notice)},
		Components: pkgdiscord.BuildNoticeComponents(notice),
	}
	if _, err := n.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send notice to channel %s: %w", channelID, err)
	}
	return nil
}

// Announce posts to the configured announcement channel.
func (n *Notifier) Announce(ctx context.Context, notice output.Notice) error {
	channelID := n.store.Current().AnnouncementChannelID
	if channelID == "" {
		return errors.New("announcement channel is not configured")
	}
	return n.send(ctx, channelID, notice)
}

func (n *Notifier) NotifyChannel(ctx context.Context, channelID string, notice output.Notice) error {
	return n.send(ctx, channelID, notice)
}
