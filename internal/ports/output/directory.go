package output

import (
	"context"
	"time"
)

// ScheduledEntry mirrors a Discord guild scheduled event. It is comparable
// so the sync saga can diff the remote entry against the desired state.
type ScheduledEntry struct {
	Name     string
	Location string
	StartAt  time.Time
	EndAt    time.Time
}

// Directory is the external collaborator owning channels, permission
// overwrites and scheduled entries. Every call is a best-effort network call
// that can fail or time out independently; nothing here is transactional.
type Directory interface {
	// CreateEventChannel creates a text channel under the configured CTF
	// category with default-deny permissions, visible only to memberID and
	// the bot. Returns the new channel id.
	CreateEventChannel(ctx context.Context, name string, memberID string) (string, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	ChannelExists(ctx context.Context, channelID string) bool

	GrantView(ctx context.Context, channelID, userID string) error
	RevokeView(ctx context.Context, channelID, userID string) error

	// MoveToArchive reparents the channel under the archive category.
	MoveToArchive(ctx context.Context, channelID, reason string) error

	// ScheduledEntry looks up a scheduled entry by id; (nil, nil) when the
	// entry no longer exists remotely.
	ScheduledEntry(ctx context.Context, id string) (*ScheduledEntry, error)
	CreateScheduledEntry(ctx context.Context, entry ScheduledEntry) (string, error)
	EditScheduledEntry(ctx context.Context, id string, entry ScheduledEntry) error
	DeleteScheduledEntry(ctx context.Context, id string) error
}
