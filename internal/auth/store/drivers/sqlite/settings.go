package sqlite

import (
	"context"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

type settingsRepo struct {
	db dbtx
}

func (r *settingsRepo) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	var s domain.Setting
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		return domain.Setting{}, mapNotFound(err)
	}
	return s, nil
}

func (r *settingsRepo) PutSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

func (r *settingsRepo) DeleteSetting(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}
