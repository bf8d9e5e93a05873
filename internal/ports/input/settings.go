package input

import (
	"context"

	"ctfbot/internal/settings"
)

type SettingsUseCase interface {
	Update(ctx context.Context, key settings.Key, value string) (name string, err error)
	Describe(ctx context.Context) []settings.Status
}
