package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ctfbot/internal/domain"
	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

// EventService owns every operation that spans the database and Discord:
// joining (and lazily creating) event channels, archival, admin re-linking
// and scheduled-entry sync. Each operation runs under the event's lease and
// compensates remote side effects when a later local step fails.
type EventService struct {
	events    output.EventRepository
	leases    output.LeaseStore
	directory output.Directory
	notifier  output.Notifier
	feed      output.EventFeed
	tr        output.T
	lockTTL   time.Duration
	log       zerolog.Logger
}

func NewEventService(
	events output.EventRepository,
	leases output.LeaseStore,
	directory output.Directory,
	notifier output.Notifier,
	feed output.EventFeed,
	tr output.T,
	lockTTL time.Duration,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		events:    events,
		leases:    leases,
		directory: directory,
		notifier:  notifier,
		feed:      feed,
		tr:        tr,
		lockTTL:   lockTTL,
		log:       log,
	}
}

func ptr[T any](v T) *T { return &v }

// CreateOrJoin adds userID to the event's channel, creating the channel
// first when none is bound (or the bound one no longer exists on Discord).
// The already return is true when the user had joined before; that is an
// expected race, not an error.
func (s *EventService) CreateOrJoin(ctx context.Context, eventID int64, userID string) (already bool, err error) {
	err = s.withEventLease(ctx, output.EventQuery{ID: eventID, Archived: ptr(false)}, func(ev *entities.Event, token string) error {
		channelID := ev.ChannelID
		if channelID != "" && s.directory.ChannelExists(ctx, channelID) {
			// Known member of a healthy channel: nothing to grant or record.
			if ev.HasParticipant(userID) {
				already = true
				return nil
			}
		} else {
			if ev.IsCTFTime() {
				fe, ferr := s.feed.ByID(ctx, ev.ExternalID)
				if ferr != nil {
					return fmt.Errorf("fetch upstream event (event_id=%d): %w", ev.ExternalID, ferr)
				}
				if fe == nil {
					return domain.ErrEventGone
				}
			}
			// A stale channel binding means stale membership; wipe it and
			// let permissions rebuild as users join the fresh channel.
			if rerr := s.events.RemoveAllParticipants(ctx, ev.ID, token); rerr != nil {
				return fmt.Errorf("reset participants: %w", rerr)
			}

			newID, cerr := s.directory.CreateEventChannel(ctx, ev.Title, userID)
			if cerr != nil {
				return fmt.Errorf("create channel: %w", cerr)
			}
			if _, uerr := s.events.Update(ctx, ev.ID, token, output.EventPatch{ChannelID: &newID}); uerr != nil {
				if derr := s.directory.DeleteChannel(ctx, newID, "channel bind failed"); derr != nil {
					s.log.Error().Err(derr).Str("channel_id", newID).Int64("event_id", ev.ID).
						Msg("failed to delete orphaned channel after bind failure")
				}
				return fmt.Errorf("bind channel: %w", uerr)
			}
			channelID = newID
		}

		if gerr := s.directory.GrantView(ctx, channelID, userID); gerr != nil {
			return fmt.Errorf("grant view permission: %w", gerr)
		}
		if aerr := s.events.AddParticipant(ctx, ev.ID, token, userID); aerr != nil {
			if errors.Is(aerr, domain.ErrAlreadyJoined) {
				// Double-click race; the permission grant above is
				// idempotent and stands.
				already = true
				return nil
			}
			if rerr := s.directory.RevokeView(ctx, channelID, userID); rerr != nil {
				s.log.Error().Err(rerr).Str("channel_id", channelID).Str("user_id", userID).
					Msg("failed to revoke permission after join failure")
			}
			return fmt.Errorf("record participant: %w", aerr)
		}

		// The join is durable at this point; the welcome message is
		// best-effort only.
		n := output.Notice{
			Title: s.tr.T("", "notice.member_joined", map[string]any{"User": mention(userID)}),
			Color: output.NoticeGreen,
		}
		if nerr := s.notifier.NotifyChannel(ctx, channelID, n); nerr != nil {
			s.log.Error().Err(nerr).Str("channel_id", channelID).
				Msg("failed to send join notification")
		}
		return nil
	})
	return already, err
}

// Archive flips the event to archived, then runs the external cleanup.
// The database transition commits before any Discord call; everything after
// it is best-effort, attempted independently, and never rolls the flag back.
// The accepted failure mode is "archived in the database but not yet visibly
// archived on Discord", logged for operator follow-up.
func (s *EventService) Archive(ctx context.Context, eventID int64, reason string) error {
	return s.withEventLease(ctx, output.EventQuery{ID: eventID, Archived: ptr(false)}, func(ev *entities.Event, token string) error {
		updated, err := s.events.Update(ctx, ev.ID, token, output.EventPatch{Archived: ptr(true)})
		if err != nil {
			return fmt.Errorf("archive event: %w", err)
		}

		n := output.Notice{
			Title:       s.tr.T("", "notice.archived.title", map[string]any{"Title": updated.Title}),
			Description: reason,
			Footer:      fmt.Sprintf("Event ID in database: %d", updated.ID),
			Color:       output.NoticeRed,
		}
		if aerr := s.notifier.Announce(ctx, n); aerr != nil {
			s.log.Error().Err(aerr).Int64("event_id", updated.ID).
				Msg("failed to send archive announcement")
		}
		if updated.ChannelID != "" {
			if nerr := s.notifier.NotifyChannel(ctx, updated.ChannelID, n); nerr != nil {
				s.log.Error().Err(nerr).Str("channel_id", updated.ChannelID).
					Msg("failed to notify event channel about archival")
			}
			if merr := s.directory.MoveToArchive(ctx, updated.ChannelID, "archived: "+reason); merr != nil {
				s.log.Error().Err(merr).Str("channel_id", updated.ChannelID).
					Msg("failed to move channel to archive category; needs manual follow-up")
			}
		}
		if updated.ScheduledEventID != "" {
			if derr := s.directory.DeleteScheduledEntry(ctx, updated.ScheduledEventID); derr != nil {
				s.log.Error().Err(derr).Str("scheduled_event_id", updated.ScheduledEventID).
					Msg("failed to delete scheduled event; needs manual follow-up")
			}
		}
		return nil
	})
}

// LinkChannel re-binds an event to an existing channel. A channel already
// bound to another event surfaces as domain.ErrChannelLinked.
func (s *EventService) LinkChannel(ctx context.Context, eventID int64, channelID string) error {
	return s.withEventLease(ctx, output.EventQuery{ID: eventID, Archived: ptr(false)}, func(ev *entities.Event, token string) error {
		if _, err := s.events.Update(ctx, ev.ID, token, output.EventPatch{ChannelID: &channelID}); err != nil {
			return fmt.Errorf("link channel: %w", err)
		}
		return nil
	})
}

// CreateCustomEvent creates a locally-defined event together with its
// channel. The channel is created first; if the database insert then fails
// the channel is deleted again so nothing is left orphaned.
func (s *EventService) CreateCustomEvent(ctx context.Context, title, creatorID string) (*entities.Event, error) {
	channelID, err := s.directory.CreateEventChannel(ctx, title, creatorID)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	ev := &entities.Event{Title: title, ChannelID: channelID}
	if err := s.events.Create(ctx, ev); err != nil {
		if derr := s.directory.DeleteChannel(ctx, channelID, "event insert failed"); derr != nil {
			s.log.Error().Err(derr).Str("channel_id", channelID).
				Msg("failed to delete channel after event insert failure")
		}
		return nil, fmt.Errorf("create custom event: %w", err)
	}

	// Record the creator as the first participant. Failure here is not
	// fatal: the creator already sees the channel and can join via the
	// announcement button.
	if lerr := s.withEventLease(ctx, output.EventQuery{ID: ev.ID}, func(locked *entities.Event, token string) error {
		return s.events.AddParticipant(ctx, locked.ID, token, creatorID)
	}); lerr != nil {
		s.log.Error().Err(lerr).Int64("event_id", ev.ID).
			Msg("failed to record creator as participant")
	}

	n := output.Notice{
		Title:       s.tr.T("", "notice.custom_created.title", map[string]any{"Title": ev.Title}),
		Color:       output.NoticeGreen,
		JoinEventID: ev.ID,
	}
	if nerr := s.notifier.Announce(ctx, n); nerr != nil {
		s.log.Error().Err(nerr).Int64("event_id", ev.ID).
			Msg("failed to announce custom event")
	}
	return ev, nil
}

// ApplyUpstreamChange updates an event whose CTFTime record changed. No-op
// when the local copy already matches.
func (s *EventService) ApplyUpstreamChange(ctx context.Context, eventID int64, fe output.FeedEvent) error {
	return s.withEventLease(ctx, output.EventQuery{ID: eventID, Kind: entities.KindCTFTime, Archived: ptr(false)}, func(ev *entities.Event, token string) error {
		if ev.Title == fe.Title && ev.StartAt.Equal(fe.StartAt) && ev.FinishAt.Equal(fe.FinishAt) {
			return nil
		}
		s.log.Info().Int64("event_id", ev.ID).Int64("external_id", ev.ExternalID).
			Str("old_title", ev.Title).Str("new_title", fe.Title).
			Msg("upstream update detected")

		updated, err := s.events.Update(ctx, ev.ID, token, output.EventPatch{
			Title:    &fe.Title,
			StartAt:  &fe.StartAt,
			FinishAt: &fe.FinishAt,
		})
		if err != nil {
			return fmt.Errorf("apply upstream change: %w", err)
		}

		n := output.Notice{
			Title:       s.tr.T("", "notice.updated.title", map[string]any{"Title": updated.Title}),
			StartAt:     updated.StartAt,
			FinishAt:    updated.FinishAt,
			Color:       output.NoticeBlue,
			JoinEventID: updated.ID,
		}
		if aerr := s.notifier.Announce(ctx, n); aerr != nil {
			s.log.Error().Err(aerr).Int64("event_id", updated.ID).
				Msg("failed to announce upstream update")
		}
		if updated.ChannelID != "" {
			if nerr := s.notifier.NotifyChannel(ctx, updated.ChannelID, n); nerr != nil {
				s.log.Error().Err(nerr).Str("channel_id", updated.ChannelID).
					Msg("failed to notify event channel about update")
			}
		}
		return nil
	})
}

// ListCTFTimeEvents pages through externally-sourced events finishing after
// finishAfter, newest window first.
func (s *EventService) ListCTFTimeEvents(ctx context.Context, finishAfter time.Time, page output.Keyset) ([]entities.Event, error) {
	page.FinishAfter = finishAfter
	return s.events.FindMany(ctx, output.EventQuery{Kind: entities.KindCTFTime, Archived: ptr(false)}, page)
}

// ListCustomEvents pages through locally-created events, newest first.
func (s *EventService) ListCustomEvents(ctx context.Context, page output.Keyset) ([]entities.Event, error) {
	return s.events.FindMany(ctx, output.EventQuery{Kind: entities.KindCustom, Archived: ptr(false)}, page)
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
