package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctfbot/internal/ports/output"
	"ctfbot/internal/settings"
)

var _ output.SettingsRepository = (*SettingsRepository)(nil)

// SettingsRepository persists guild settings as a single constrained row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Load(ctx context.Context) (settings.Snapshot, error) {
	var snap settings.Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT announcement_channel_id, ctf_category_id, archive_category_id,
		       pm_role_id, member_role_id
		  FROM guild_settings WHERE id = 1`).Scan(
		&snap.AnnouncementChannelID,
		&snap.CTFCategoryID,
		&snap.ArchiveCategoryID,
		&snap.PMRoleID,
		&snap.MemberRoleID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nothing configured yet.
			return settings.Snapshot{}, nil
		}
		return settings.Snapshot{}, fmt.Errorf("load settings: %w", err)
	}
	return snap, nil
}

func (r *SettingsRepository) Save(ctx context.Context, key settings.Key, value string) error {
	col, err := settingColumn(key)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(`
		INSERT INTO guild_settings (id, %s) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET %s = EXCLUDED.%s, updated_at = now()`,
		col, col, col)
	if _, err := r.pool.Exec(ctx, sql, value); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// settingColumn resolves a key to its column. The enum is closed, so this is
// the only place a key name ever reaches SQL.
func settingColumn(key settings.Key) (string, error) {
	switch key {
	case settings.KeyAnnouncementChannel:
		return "announcement_channel_id", nil
	case settings.KeyCTFCategory:
		return "ctf_category_id", nil
	case settings.KeyArchiveCategory:
		return "archive_category_id", nil
	case settings.KeyPMRole:
		return "pm_role_id", nil
	case settings.KeyMemberRole:
		return "member_role_id", nil
	}
	return "", fmt.Errorf("unknown setting key %d", key)
}
