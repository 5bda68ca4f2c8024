package sqlite

import (
	"context"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

type mfaSessionsRepo struct {
	db dbtx
}

func (r *mfaSessionsRepo) CreateMFASession(ctx context.Context, s domain.MFASession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_sessions (id, user_id, attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Attempts, s.ExpiresAt, s.CreatedAt,
	)
	return err
}

func (r *mfaSessionsRepo) GetMFASession(ctx context.Context, id string) (domain.MFASession, error) {
	var s domain.MFASession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, attempts, expires_at, created_at
		FROM mfa_sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&s.ID, &s.UserID, &s.Attempts, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.MFASession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *mfaSessionsRepo) IncrementMFASessionAttempts(ctx context.Context, id string) (domain.MFASession, error) {
	var s domain.MFASession
	err := r.db.QueryRowContext(ctx, `
		UPDATE mfa_sessions SET attempts = attempts + 1
		WHERE id = ?
		RETURNING id, user_id, attempts, expires_at, created_at`,
		id,
	).Scan(&s.ID, &s.UserID, &s.Attempts, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.MFASession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *mfaSessionsRepo) DeleteMFASession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_sessions WHERE id = ?`, id)
	return err
}

func (r *mfaSessionsRepo) DeleteExpiredMFASessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
