package application

import (
	"context"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

// withEventLease acquires the lease on the event matching q, runs fn with
// the event and the owner token, and releases the lease no matter how fn
// exits. It is the only place in the codebase that acquires or releases
// leases; sagas never talk to the lease store directly.
//
// Not-found and locked surface to the caller untouched: both are expected
// conditions, not failures. A failed release is logged at error level and
// never masks fn's outcome; the lease self-heals via its TTL.
func (s *EventService) withEventLease(ctx context.Context, q output.EventQuery, fn func(ev *entities.Event, token string) error) error {
	ev, token, err := s.events.FindOneLocked(ctx, q, s.lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		// Release must run even when ctx was canceled mid-saga.
		released, rerr := s.leases.Release(context.WithoutCancel(ctx), ev.ID, token)
		if rerr != nil {
			s.log.Error().Err(rerr).Int64("event_id", ev.ID).
				Msg("failed to release event lease; waiting for TTL expiry")
			return
		}
		if !released {
			s.log.Warn().Int64("event_id", ev.ID).
				Msg("event lease expired before release")
		}
	}()
	return fn(ev, token)
}
