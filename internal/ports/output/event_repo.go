package output

import (
	"context"
	"time"

	"ctfbot/internal/domain/entities"
)

// EventQuery is the identifying filter for single-event reads and lease
// acquisition. Zero values mean "don't filter on this column".
type EventQuery struct {
	ID         int64
	ExternalID int64
	ChannelID  string
	Kind       entities.Kind
	Archived   *bool
}

// Keyset describes one page of an unlocked bulk read. Boundaries are
// last-seen (sort key, id) tuples rather than offsets so pages stay stable
// while events are archived or inserted between fetches.
type Keyset struct {
	Limit int // 0 = no limit

	// CTFTime listing: ordered by (finish DESC, id DESC), restricted to
	// events finishing after FinishAfter.
	FinishAfter time.Time
	LastFinish  time.Time
	LastID      int64
}

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Archived         *bool
	Title            *string
	StartAt          *time.Time
	FinishAt         *time.Time
	ChannelID        *string
	ScheduledEventID *string
}

type EventRepository interface {
	Create(ctx context.Context, event *entities.Event) error

	// FindOne returns the single event matching q, participants attached.
	// domain.ErrEventNotFound when nothing matches.
	FindOne(ctx context.Context, q EventQuery) (*entities.Event, error)

	// FindOneLocked reads the event matching q and acquires its lease in the
	// same consistent step, so "exists but is locked" cannot race with
	// "does not exist". Returns the event and the lease owner token.
	// domain.ErrEventNotFound / domain.ErrEventLocked are distinct outcomes.
	FindOneLocked(ctx context.Context, q EventQuery, ttl time.Duration) (*entities.Event, string, error)

	// FindMany is an unlocked bulk read. For KindCTFTime it pages by
	// (finish DESC, id DESC); for KindCustom by id DESC.
	FindMany(ctx context.Context, q EventQuery, page Keyset) ([]entities.Event, error)

	// FindExpired returns non-archived events whose finish time is already
	// before horizon.
	FindExpired(ctx context.Context, horizon time.Time) ([]entities.Event, error)

	// Update applies patch only while token still owns a non-expired lease
	// on the row; the lease re-check and the patch run in one conditional
	// statement. domain.ErrEventNotFound when the lease is no longer valid.
	Update(ctx context.Context, id int64, token string, patch EventPatch) (*entities.Event, error)

	// AddParticipant inserts into the participant relation under the same
	// lease gate. domain.ErrAlreadyJoined when the pair already exists.
	AddParticipant(ctx context.Context, id int64, token string, userID string) error

	// RemoveAllParticipants bulk-clears the relation under the lease gate.
	RemoveAllParticipants(ctx context.Context, id int64, token string) error
}
