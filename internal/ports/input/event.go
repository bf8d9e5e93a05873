package input

import (
	"context"
	"time"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

type EventUseCase interface {
	CreateOrJoin(ctx context.Context, eventID int64, userID string) (already bool, err error)
	Archive(ctx context.Context, eventID int64, reason string) error
	LinkChannel(ctx context.Context, eventID int64, channelID string) error
	CreateCustomEvent(ctx context.Context, title, creatorID string) (*entities.Event, error)
	SyncScheduledEvent(ctx context.Context, eventID int64) error
	ListCTFTimeEvents(ctx context.Context, finishAfter time.Time, page output.Keyset) ([]entities.Event, error)
	ListCustomEvents(ctx context.Context, page output.Keyset) ([]entities.Event, error)
}
