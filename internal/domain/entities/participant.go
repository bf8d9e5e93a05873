package entities

import "time"

// Participant associates a Discord user with an event.
type Participant struct {
	EventID  int64
	UserID   string
	JoinedAt time.Time
}
