package output

import (
	"context"

	"ctfbot/internal/settings"
)

// SettingsRepository persists the single guild settings row.
type SettingsRepository interface {
	Load(ctx context.Context) (settings.Snapshot, error)
	Save(ctx context.Context, key settings.Key, value string) error
}
