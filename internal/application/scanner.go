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

// Scanner is the periodic reconciliation driver. Each pass is stateless and
// tolerant of partial failure: one event's error is logged and the pass
// moves on. Contention with user-triggered operations shows up as locked
// events, which a pass simply skips until the next run.
type Scanner struct {
	events        output.EventRepository
	feed          output.EventFeed
	notifier      output.Notifier
	svc           *EventService
	tr            output.T
	retentionDays int // negative look-back offset, e.g. -90
	log           zerolog.Logger
}

func NewScanner(
	events output.EventRepository,
	feed output.EventFeed,
	notifier output.Notifier,
	svc *EventService,
	tr output.T,
	retentionDays int,
	log zerolog.Logger,
) *Scanner {
	return &Scanner{
		events:        events,
		feed:          feed,
		notifier:      notifier,
		svc:           svc,
		tr:            tr,
		retentionDays: retentionDays,
		log:           log,
	}
}

func (s *Scanner) horizon(now time.Time) time.Time {
	return now.AddDate(0, 0, s.retentionDays)
}

// RunAll executes the four passes in their canonical order.
func (s *Scanner) RunAll(ctx context.Context) {
	s.DetectNew(ctx)
	s.DetectUpdatesAndRemovals(ctx)
	s.ArchiveExpired(ctx)
	s.RecoverScheduledEvents(ctx)
}

// DetectNew diffs the feed's current listing against every tracked external
// id — archived included, so a removed-then-relisted event is not
// re-ingested — and creates an event per unseen id.
func (s *Scanner) DetectNew(ctx context.Context) {
	feedEvents, err := s.feed.Upcoming(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch upcoming events from feed")
		return
	}

	known, err := s.events.FindMany(ctx,
		output.EventQuery{Kind: entities.KindCTFTime},
		output.Keyset{FinishAfter: s.horizon(time.Now())})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load known events")
		return
	}
	knownIDs := make(map[int64]bool, len(known))
	for _, ev := range known {
		knownIDs[ev.ExternalID] = true
	}

	for _, fe := range feedEvents {
		if knownIDs[fe.ID] {
			continue
		}
		ev := entities.Event{
			ExternalID: fe.ID,
			Title:      fe.Title,
			StartAt:    fe.StartAt,
			FinishAt:   fe.FinishAt,
		}
		if err := s.events.Create(ctx, &ev); err != nil {
			if errors.Is(err, domain.ErrDuplicateEvent) {
				// A concurrent scan won the insert; that is success.
				s.log.Info().Int64("external_id", fe.ID).Msg("event already tracked, skipped")
				continue
			}
			s.log.Error().Err(err).Int64("external_id", fe.ID).Msg("failed to create event")
			continue
		}
		s.log.Info().Int64("event_id", ev.ID).Int64("external_id", fe.ID).
			Str("title", fe.Title).Msg("new CTFTime event detected")

		n := output.Notice{
			Title:       s.tr.T("", "notice.new_event.title", map[string]any{"Title": fe.Title}),
			StartAt:     fe.StartAt,
			FinishAt:    fe.FinishAt,
			Color:       output.NoticeGreen,
			JoinEventID: ev.ID,
		}
		if nerr := s.notifier.Announce(ctx, n); nerr != nil {
			s.log.Error().Err(nerr).Int64("event_id", ev.ID).
				Msg("failed to announce new event")
		}
	}
}

// DetectUpdatesAndRemovals re-fetches every known, active event within the
// retention horizon: changed metadata is applied, and events gone upstream
// are archived.
func (s *Scanner) DetectUpdatesAndRemovals(ctx context.Context) {
	known, err := s.events.FindMany(ctx,
		output.EventQuery{Kind: entities.KindCTFTime, Archived: ptr(false)},
		output.Keyset{FinishAfter: s.horizon(time.Now())})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load known events")
		return
	}

	for _, ev := range known {
		fe, err := s.feed.ByID(ctx, ev.ExternalID)
		if err != nil {
			s.log.Error().Err(err).Int64("external_id", ev.ExternalID).
				Msg("failed to fetch event from feed")
			continue
		}
		if fe == nil {
			s.log.Info().Int64("event_id", ev.ID).Int64("external_id", ev.ExternalID).
				Str("title", ev.Title).Msg("event removed upstream")
			reason := fmt.Sprintf("Event (id=%d) was canceled (removed) from CTFTime", ev.ID)
			if aerr := s.svc.Archive(ctx, ev.ID, reason); aerr != nil {
				s.logPassError(aerr, ev.ID, "failed to archive removed event")
			}
			continue
		}
		if uerr := s.svc.ApplyUpstreamChange(ctx, ev.ID, *fe); uerr != nil {
			s.logPassError(uerr, ev.ID, "failed to apply upstream change")
		}
	}
}

// ArchiveExpired archives every active event whose finish time fell behind
// the retention horizon.
func (s *Scanner) ArchiveExpired(ctx context.Context) {
	expired, err := s.events.FindExpired(ctx, s.horizon(time.Now()))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load expired events")
		return
	}
	for _, ev := range expired {
		s.log.Info().Int64("event_id", ev.ID).Str("title", ev.Title).Msg("event expired")
		reason := fmt.Sprintf("Event (id=%d) was expired", ev.ID)
		if aerr := s.svc.Archive(ctx, ev.ID, reason); aerr != nil {
			s.logPassError(aerr, ev.ID, "failed to archive expired event")
		}
	}
}

// RecoverScheduledEvents drives the scheduled-entry sync for every active
// event within the retention horizon.
func (s *Scanner) RecoverScheduledEvents(ctx context.Context) {
	known, err := s.events.FindMany(ctx,
		output.EventQuery{Kind: entities.KindCTFTime, Archived: ptr(false)},
		output.Keyset{FinishAfter: s.horizon(time.Now())})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load known events")
		return
	}
	for _, ev := range known {
		if serr := s.svc.SyncScheduledEvent(ctx, ev.ID); serr != nil {
			s.logPassError(serr, ev.ID, "failed to sync scheduled event")
		}
	}
}

// logPassError downgrades the expected contention outcomes to warnings; the
// next run will pick the event up again.
func (s *Scanner) logPassError(err error, eventID int64, msg string) {
	if errors.Is(err, domain.ErrEventLocked) || errors.Is(err, domain.ErrEventNotFound) {
		s.log.Warn().Err(err).Int64("event_id", eventID).Msg(msg + ", skipped")
		return
	}
	s.log.Error().Err(err).Int64("event_id", eventID).Msg(msg)
}
