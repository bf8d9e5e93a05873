package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
)

var _ output.Directory = (*Directory)(nil)
var _ settings.Resolver = (*Directory)(nil)

// Directory drives the guild's channels, permission overwrites and scheduled
// events through the Discord API.
type Directory struct {
	session *discordgo.Session
	guildID string
	store   *settings.Store
	log     zerolog.Logger
}

func NewDirectory(session *discordgo.Session, guildID string, store *settings.Store, log zerolog.Logger) *Directory {
	return &Directory{
		session: session,
		guildID: guildID,
		store:   store,
		log:     log,
	}
}

// Keep letters (accented included), digits and hyphens. Everything else
// becomes a hyphen.
var channelNameSanitize = regexp.MustCompile(`[^\p{L}\p{N}-]+`)

func sanitizeChannelName(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = channelNameSanitize.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "ctf-event"
	}
	return s
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound
}

// CreateEventChannel creates the event's text channel under the configured
// CTF category. The channel starts hidden from everyone except memberID and
// the bot itself.
func (d *Directory) CreateEventChannel(ctx context.Context, name string, memberID string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: d.guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: memberID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel},
		{ID: d.session.State.User.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel},
	}
	data := discordgo.GuildChannelCreateData{
		Name:                 sanitizeChannelName(name),
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
		ParentID:             d.store.Current().CTFCategoryID,
	}
	ch, err := d.session.GuildChannelCreateComplex(d.guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create guild channel: %w", err)
	}
	return ch.ID, nil
}

func (d *Directory) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := d.session.ChannelDelete(channelID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Directory) ChannelExists(ctx context.Context, channelID string) bool {
	if _, err := d.session.State.Channel(channelID); err == nil {
		return true
	}
	_, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	return err == nil
}

func (d *Directory) GrantView(ctx context.Context, channelID, userID string) error {
	err := d.session.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, discordgo.PermissionViewChannel, 0,
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("grant view on %s for %s: %w", channelID, userID, err)
	}
	return nil
}

func (d *Directory) RevokeView(ctx context.Context, channelID, userID string) error {
	err := d.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("revoke view on %s for %s: %w", channelID, userID, err)
	}
	return nil
}

func (d *Directory) MoveToArchive(ctx context.Context, channelID, reason string) error {
	archiveID := d.store.Current().ArchiveCategoryID
	if archiveID == "" {
		return errors.New("archive category is not configured")
	}
	_, err := d.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{ParentID: archiveID},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("move channel %s to archive: %w", channelID, err)
	}
	return nil
}

func scheduledEventParams(entry output.ScheduledEntry) *discordgo.GuildScheduledEventParams {
	start, end := entry.StartAt, entry.EndAt
	return &discordgo.GuildScheduledEventParams{
		Name:               entry.Name,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &end,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
		EntityType:         discordgo.GuildScheduledEventEntityTypeExternal,
		EntityMetadata: &discordgo.GuildScheduledEventEntityMetadata{
			Location: entry.Location,
		},
	}
}

func (d *Directory) ScheduledEntry(ctx context.Context, id string) (*output.ScheduledEntry, error) {
	ev, err := d.session.GuildScheduledEvent(d.guildID, id, false, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch scheduled event %s: %w", id, err)
	}
	var end time.Time
	if ev.ScheduledEndTime != nil {
		end = *ev.ScheduledEndTime
	}
	return &output.ScheduledEntry{
		Name:     ev.Name,
		Location: ev.EntityMetadata.Location,
		StartAt:  ev.ScheduledStartTime,
		EndAt:    end,
	}, nil
}

func (d *Directory) CreateScheduledEntry(ctx context.Context, entry output.ScheduledEntry) (string, error) {
	ev, err := d.session.GuildScheduledEventCreate(d.guildID, scheduledEventParams(entry),
		discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create scheduled event: %w", err)
	}
	return ev.ID, nil
}

func (d *Directory) EditScheduledEntry(ctx context.Context, id string, entry output.ScheduledEntry) error {
	_, err := d.session.GuildScheduledEventEdit(d.guildID, id, scheduledEventParams(entry),
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("edit scheduled event %s: %w", id, err)
	}
	return nil
}

func (d *Directory) DeleteScheduledEntry(ctx context.Context, id string) error {
	err := d.session.GuildScheduledEventDelete(d.guildID, id, discordgo.WithContext(ctx))
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete scheduled event %s: %w", id, err)
	}
	return nil
}

// Resolve checks that id references a live guild object of the wanted kind
// and returns its display name. Implements settings.Resolver.
func (d *Directory) Resolve(kind settings.ObjectKind, id string) (string, bool) {
	switch kind {
	case settings.KindTextChannel, settings.KindCategory:
		ch, err := d.session.State.Channel(id)
		if err != nil {
			if ch, err = d.session.Channel(id); err != nil {
				return "", false
			}
		}
		if ch.GuildID != d.guildID {
			return "", false
		}
		wantType := discordgo.ChannelTypeGuildText
		if kind == settings.KindCategory {
			wantType = discordgo.ChannelTypeGuildCategory
		}
		if ch.Type != wantType {
			return "", false
		}
		return ch.Name, true
	case settings.KindRole:
		roles, err := d.session.GuildRoles(d.guildID)
		if err != nil {
			return "", false
		}
		for _, role := range roles {
			if role.ID == id {
				return role.Name, true
			}
		}
	}
	return "", false
}
