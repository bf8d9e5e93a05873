package output

import (
	"context"
	"time"
)

// LeaseStore hands out time-bounded exclusive claims on events. A lease is
// embedded in the event row itself; acquisition is a single atomic
// conditional update, never a read followed by a write.
type LeaseStore interface {
	// Acquire claims the event matching q for ttl and returns the claimed
	// row's id together with a fresh owner token. The id is what Release
	// takes; q may identify the row by any filter, not just its id. It
	// succeeds only when the row exists and is unlocked or its previous
	// lease has expired. domain.ErrEventNotFound when no row matches q at
	// all, domain.ErrEventLocked when the row is held.
	Acquire(ctx context.Context, q EventQuery, ttl time.Duration) (int64, string, error)

	// Release clears the lease only while token is still the owner. The
	// boolean reports whether anything was cleared; false means the lease
	// already expired or changed hands, which is not an error.
	Release(ctx context.Context, eventID int64, token string) (bool, error)
}
