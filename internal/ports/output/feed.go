package output

import (
	"context"
	"time"
)

// FeedEvent is one upcoming event as reported by the external CTF calendar.
type FeedEvent struct {
	ID       int64
	Title    string
	StartAt  time.Time
	FinishAt time.Time
}

// EventFeed is the external CTF calendar (CTFTime).
type EventFeed interface {
	// Upcoming returns a bounded page of upcoming events.
	Upcoming(ctx context.Context) ([]FeedEvent, error)
	// ByID returns the event with the given external id, or (nil, nil) when
	// it no longer exists upstream.
	ByID(ctx context.Context, externalID int64) (*FeedEvent, error)
}
