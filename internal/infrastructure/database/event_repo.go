package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctfbot/internal/domain"
	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

var _ output.EventRepository = (*EventRepository)(nil)

// EventRepository implements output.EventRepository with hand-written SQL on
// pgx. Every write is a conditional statement gated on the caller's lease;
// the lease re-check always happens inside the same statement as the write.
type EventRepository struct {
	pool   *pgxpool.Pool
	leases *LeaseStore
}

func NewEventRepository(pool *pgxpool.Pool, leases *LeaseStore) *EventRepository {
	return &EventRepository{pool: pool, leases: leases}
}

func (r *EventRepository) Create(ctx context.Context, event *entities.Event) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO events (external_id, title, start_at, finish_at, channel_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		nullableInt8(event.ExternalID),
		event.Title,
		timestamptz(event.StartAt),
		timestamptz(event.FinishAt),
		nullableText(event.ChannelID),
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", translateUnique(err))
	}
	return nil
}

func (r *EventRepository) FindOne(ctx context.Context, q output.EventQuery) (*entities.Event, error) {
	filter, args := buildEventFilter(q, nil)
	sql := fmt.Sprintf("SELECT %s FROM events WHERE %s", eventColumns, filter)

	e, err := scanEvent(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := r.attachParticipants(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindOneLocked is the combined read+lock: the lease store's conditional
// update decides existence and contention against one snapshot, then the row
// is read back under the fresh lease.
func (r *EventRepository) FindOneLocked(ctx context.Context, q output.EventQuery, ttl time.Duration) (*entities.Event, string, error) {
	id, token, err := r.leases.Acquire(ctx, q, ttl)
	if err != nil {
		return nil, "", err
	}
	e, err := r.FindOne(ctx, q)
	if err != nil {
		// The row vanished between claim and read; give the lease back so
		// it does not linger until TTL. Released by the claimed id, since
		// q may not carry one.
		if _, rerr := r.leases.Release(ctx, id, token); rerr != nil {
			return nil, "", errors.Join(err, rerr)
		}
		return nil, "", err
	}
	return e, token, nil
}

func (r *EventRepository) FindMany(ctx context.Context, q output.EventQuery, page output.Keyset) ([]entities.Event, error) {
	filter, args := buildEventFilter(q, nil)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM events WHERE %s", eventColumns, filter)

	if q.Kind == entities.KindCTFTime {
		if !page.FinishAfter.IsZero() {
			args = append(args, page.FinishAfter)
			fmt.Fprintf(&b, " AND finish_at > $%d", len(args))
		}
		if !page.LastFinish.IsZero() {
			args = append(args, page.LastFinish, page.LastID)
			fmt.Fprintf(&b, " AND (finish_at, id) < ($%d, $%d)", len(args)-1, len(args))
		}
		b.WriteString(" ORDER BY finish_at DESC, id DESC")
	} else {
		if page.LastID != 0 {
			args = append(args, page.LastID)
			fmt.Fprintf(&b, " AND id < $%d", len(args))
		}
		b.WriteString(" ORDER BY id DESC")
	}
	if page.Limit > 0 {
		args = append(args, page.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return r.queryEvents(ctx, b.String(), args...)
}

func (r *EventRepository) FindExpired(ctx context.Context, horizon time.Time) ([]entities.Event, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM events
		 WHERE archived = FALSE AND finish_at IS NOT NULL AND finish_at < $1`,
		eventColumns)
	return r.queryEvents(ctx, sql, horizon)
}

func (r *EventRepository) Update(ctx context.Context, id int64, token string, patch output.EventPatch) (*entities.Event, error) {
	sets := []string{}
	args := []any{}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Archived != nil {
		set("archived", *patch.Archived)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.StartAt != nil {
		set("start_at", timestamptz(*patch.StartAt))
	}
	if patch.FinishAt != nil {
		set("finish_at", timestamptz(*patch.FinishAt))
	}
	if patch.ChannelID != nil {
		set("channel_id", nullableText(*patch.ChannelID))
	}
	if patch.ScheduledEventID != nil {
		set("scheduled_event_id", nullableText(*patch.ScheduledEventID))
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id, token, time.Now().UTC())
	sql := fmt.Sprintf(`
		UPDATE events SET %s
		 WHERE id = $%d AND locked_by = $%d AND locked_until >= $%d
		RETURNING %s`,
		strings.Join(sets, ", "), len(args)-2, len(args)-1, len(args), eventColumns)

	e, err := scanEvent(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row missing or lease no longer valid; both mean the caller's
			// view of the row is stale.
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", translateUnique(err))
	}
	return &e, nil
}

func (r *EventRepository) AddParticipant(ctx context.Context, id int64, token string, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO event_participants (event_id, user_id, joined_at)
		SELECT e.id, $2, now()
		  FROM events e
		 WHERE e.id = $1 AND e.locked_by = $3 AND e.locked_until >= $4`,
		id, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add participant: %w", translateUnique(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) RemoveAllParticipants(ctx context.Context, id int64, token string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM event_participants p
		 USING events e
		 WHERE p.event_id = e.id
		   AND e.id = $1 AND e.locked_by = $2 AND e.locked_until >= $3`,
		id, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("remove participants: %w", err)
	}
	return nil
}

func (r *EventRepository) queryEvents(ctx context.Context, sql string, args ...any) ([]entities.Event, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []entities.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return out, nil
}

func (r *EventRepository) attachParticipants(ctx context.Context, e *entities.Event) error {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, user_id, joined_at
		  FROM event_participants
		 WHERE event_id = $1
		 ORDER BY joined_at, user_id`,
		e.ID)
	if err != nil {
		return fmt.Errorf("get participants: %w", err)
	}
	defer rows.Close()

	e.Participants = e.Participants[:0]
	for rows.Next() {
		var p entities.Participant
		if err := rows.Scan(&p.EventID, &p.UserID, &p.JoinedAt); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		e.Participants = append(e.Participants, p)
	}
	return rows.Err()
}

// translateUnique maps Postgres unique violations onto the domain conflicts
// callers branch on. Anything else passes through unchanged.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "events_external_id_idx":
		return domain.ErrDuplicateEvent
	case "events_channel_id_idx":
		return domain.ErrChannelLinked
	case "event_participants_pkey":
		return domain.ErrAlreadyJoined
	}
	return err
}
