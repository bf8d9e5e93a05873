package output

import (
	"context"
	"time"
)

// Notice colors, mirroring the embed colors the original announcements use.
const (
	NoticeGreen = 0x57F287
	NoticeRed   = 0xED4245
	NoticeBlue  = 0x5865F2
)

// Notice is a user-facing notification message.
type Notice struct {
	Title       string
	Description string
	Footer      string
	Color       int

	// StartAt/FinishAt render as a time window when both are set.
	StartAt  time.Time
	FinishAt time.Time

	// JoinEventID attaches a join button for this event when non-zero.
	JoinEventID int64
}

// Notifier delivers notices. Errors are always caught and logged by the
// caller; a failed notification never fails the operation that sent it.
type Notifier interface {
	// Announce sends to the configured announcement channel.
	Announce(ctx context.Context, n Notice) error
	// NotifyChannel sends to a specific channel.
	NotifyChannel(ctx context.Context, channelID string, n Notice) error
}
