package domain

import "errors"

// Domain errors.
//
// The first three are the classification every caller is expected to branch
// on with errors.Is: not-found, locked and conflict. Locked means another
// holder owns the event's lease right now; callers surface it as "try again
// later" and never retry inside the core.
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrEventLocked    = errors.New("event is locked by another operation")
	ErrAlreadyJoined  = errors.New("user has already joined this event")
	ErrDuplicateEvent = errors.New("event is already tracked")
	ErrChannelLinked  = errors.New("channel is already linked to another event")
	ErrEventGone      = errors.New("event no longer exists upstream")
)
