package entities

import "time"

// Kind selects which class of events a query matches.
type Kind int

const (
	KindAny Kind = iota
	KindCTFTime
	KindCustom
)

type Event struct {
	ID         int64
	ExternalID int64     // CTFTime event id; 0 = custom event
	Title      string
	StartAt    time.Time // zero = not set (custom events)
	FinishAt   time.Time // zero = not set (custom events)
	Archived   bool

	ChannelID        string // Discord text channel; "" = no channel bound
	ScheduledEventID string // Discord scheduled event; "" = none

	LockedBy    string    // lease owner token; "" = unlocked
	LockedUntil time.Time // lease expiry; a past expiry counts as unlocked

	Participants []Participant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCTFTime reports whether the event was ingested from CTFTime, as opposed
// to being created locally.
func (e *Event) IsCTFTime() bool {
	return e.ExternalID != 0
}

func (e *Event) Running(now time.Time) bool {
	if e.StartAt.IsZero() || e.FinishAt.IsZero() {
		return false
	}
	return !now.Before(e.StartAt) && !now.After(e.FinishAt)
}

// HasParticipant reports whether userID is already associated with the event.
func (e *Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
