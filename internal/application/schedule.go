package application

import (
	"context"
	"fmt"
	"time"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

func ctftimeEventURL(externalID int64) string {
	return fmt.Sprintf("https://ctftime.org/event/%d", externalID)
}

// SyncScheduledEvent makes the Discord scheduled event for a CTFTime event
// match the database: create it when missing, edit it when drifted, and fall
// back to recreation when the edit is refused. A freshly created entry that
// cannot be bound in the database is deleted again.
func (s *EventService) SyncScheduledEvent(ctx context.Context, eventID int64) error {
	return s.withEventLease(ctx, output.EventQuery{ID: eventID, Kind: entities.KindCTFTime, Archived: ptr(false)}, func(ev *entities.Event, token string) error {
		if ev.ChannelID == "" {
			// Nobody joined this event yet; no channel means no scheduled
			// event either.
			return nil
		}
		now := time.Now()
		if !ev.StartAt.After(now) || !ev.FinishAt.After(now) {
			// Discord refuses scheduled events starting in the past.
			return nil
		}

		desired := output.ScheduledEntry{
			Name:     ev.Title,
			Location: ctftimeEventURL(ev.ExternalID),
			StartAt:  ev.StartAt,
			EndAt:    ev.FinishAt,
		}

		needCreate := ev.ScheduledEventID == ""
		if !needCreate {
			current, err := s.directory.ScheduledEntry(ctx, ev.ScheduledEventID)
			if err != nil {
				return fmt.Errorf("look up scheduled event: %w", err)
			}
			switch {
			case current == nil:
				needCreate = true
			case !current.StartAt.Equal(desired.StartAt) ||
				!current.EndAt.Equal(desired.EndAt) ||
				current.Name != desired.Name ||
				current.Location != desired.Location:
				s.log.Info().Int64("event_id", ev.ID).Str("scheduled_event_id", ev.ScheduledEventID).
					Msg("editing drifted scheduled event")
				if eerr := s.directory.EditScheduledEntry(ctx, ev.ScheduledEventID, desired); eerr != nil {
					// Self-heal: recreate instead of reporting the edit
					// failure.
					s.log.Error().Err(eerr).Str("scheduled_event_id", ev.ScheduledEventID).
						Msg("failed to edit scheduled event, recreating")
					needCreate = true
				}
			}
		}

		if !needCreate {
			return nil
		}

		s.log.Info().Int64("event_id", ev.ID).Msg("(re)creating scheduled event")
		newID, err := s.directory.CreateScheduledEntry(ctx, desired)
		if err != nil {
			return fmt.Errorf("create scheduled event: %w", err)
		}
		if _, uerr := s.events.Update(ctx, ev.ID, token, output.EventPatch{ScheduledEventID: &newID}); uerr != nil {
			if derr := s.directory.DeleteScheduledEntry(ctx, newID); derr != nil {
				s.log.Error().Err(derr).Str("scheduled_event_id", newID).
					Msg("failed to delete unbound scheduled event")
			}
			return fmt.Errorf("bind scheduled event: %w", uerr)
		}
		return nil
	})
}
