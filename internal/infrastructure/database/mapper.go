package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

// eventColumns is the column list every event SELECT/RETURNING uses, in the
// order scanEvent expects.
const eventColumns = `id, external_id, title, start_at, finish_at, archived,
	channel_id, scheduled_event_id, locked_by, locked_until, created_at, updated_at`

// pgtypeTimestamptzToTime returns t.Time when Valid, else zero time.
func pgtypeTimestamptzToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nullableInt8(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}

func nullableText(v string) pgtype.Text {
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}

// row is anything with a pgx-style Scan, so scanEvent works for both
// QueryRow results and Rows iteration.
type row interface {
	Scan(dest ...any) error
}

func scanEvent(r row) (entities.Event, error) {
	var (
		e          entities.Event
		externalID pgtype.Int8
		startAt    pgtype.Timestamptz
		finishAt   pgtype.Timestamptz
		channelID  pgtype.Text
		schedID    pgtype.Text
		lockedBy   pgtype.Text
		lockedTill pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := r.Scan(
		&e.ID, &externalID, &e.Title, &startAt, &finishAt, &e.Archived,
		&channelID, &schedID, &lockedBy, &lockedTill, &createdAt, &updatedAt,
	); err != nil {
		return entities.Event{}, err
	}
	e.ExternalID = externalID.Int64
	e.StartAt = pgtypeTimestamptzToTime(startAt)
	e.FinishAt = pgtypeTimestamptzToTime(finishAt)
	e.ChannelID = channelID.String
	e.ScheduledEventID = schedID.String
	e.LockedBy = lockedBy.String
	e.LockedUntil = pgtypeTimestamptzToTime(lockedTill)
	e.CreatedAt = pgtypeTimestamptzToTime(createdAt)
	e.UpdatedAt = pgtypeTimestamptzToTime(updatedAt)
	return e, nil
}

// buildEventFilter renders q as SQL conditions. Placeholders continue from
// len(args)+1 so callers can pre-seed arguments.
func buildEventFilter(q output.EventQuery, args []any) (string, []any) {
	conds := []string{}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.ID != 0 {
		add("id = $%d", q.ID)
	}
	if q.ExternalID != 0 {
		add("external_id = $%d", q.ExternalID)
	}
	if q.ChannelID != "" {
		add("channel_id = $%d", q.ChannelID)
	}
	switch q.Kind {
	case entities.KindCTFTime:
		conds = append(conds, "external_id IS NOT NULL")
	case entities.KindCustom:
		conds = append(conds, "external_id IS NULL")
	}
	if q.Archived != nil {
		add("archived = $%d", *q.Archived)
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}
