package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctfbot/internal/domain"
	"ctfbot/internal/ports/output"
)

var _ output.LeaseStore = (*LeaseStore)(nil)

// LeaseStore implements the cooperative event lock on top of the events
// table. The lease lives in the row itself (locked_by, locked_until); both
// acquire and release are single conditional statements, so two concurrent
// acquirers can never both win.
type LeaseStore struct {
	pool *pgxpool.Pool
}

func NewLeaseStore(pool *pgxpool.Pool) *LeaseStore {
	return &LeaseStore{pool: pool}
}

// Acquire claims the event matching q. The CTE evaluates "does a row match"
// and "could it be claimed" against one snapshot, which keeps not-found and
// locked distinguishable without a separate read. The claimed row's id comes
// back alongside the token so callers can release even when q identified the
// row by external id or channel.
func (s *LeaseStore) Acquire(ctx context.Context, q output.EventQuery, ttl time.Duration) (int64, string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()

	filter, args := buildEventFilter(q, nil)
	args = append(args, token, now.Add(ttl), now)
	sql := fmt.Sprintf(`
		WITH target AS (
			SELECT id FROM events WHERE %s
		),
		claimed AS (
			UPDATE events
			   SET locked_by = $%d, locked_until = $%d
			 WHERE id IN (SELECT id FROM target)
			   AND (locked_until IS NULL OR locked_until < $%d)
			RETURNING id
		)
		SELECT
			(SELECT count(*) FROM target),
			(SELECT count(*) FROM claimed),
			COALESCE((SELECT id FROM claimed), 0)`,
		filter, len(args)-2, len(args)-1, len(args))

	var matched, claimed, id int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&matched, &claimed, &id); err != nil {
		return 0, "", fmt.Errorf("acquire lease: %w", err)
	}
	switch {
	case matched == 0:
		return 0, "", domain.ErrEventNotFound
	case claimed == 0:
		return 0, "", domain.ErrEventLocked
	}
	return id, token, nil
}

// Release clears the lease only while token still owns it. A false return
// means the lease already expired or was reclaimed, which callers treat as
// informational.
func (s *LeaseStore) Release(ctx context.Context, eventID int64, token string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE events
		   SET locked_by = NULL, locked_until = NULL
		 WHERE id = $1 AND locked_by = $2`,
		eventID, token)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
