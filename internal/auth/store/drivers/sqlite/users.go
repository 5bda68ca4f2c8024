package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, role_id, is_active,
	failed_login_attempts, locked_until, last_login_at, last_login_ip,
	last_login_user_agent, mfa_enabled, mfa_secret, mfa_enrolled_at,
	force_password_change, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
		mfaSecret   sql.NullString
		enrolledAt  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.IsActive,
		&u.FailedLoginAttempts, &lockedUntil, &lastLogin, &u.LastLoginIP,
		&u.LastLoginUserAgent, &u.MFAEnabled, &mfaSecret, &enrolledAt,
		&u.ForcePasswordChange, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.MFASecret = mapNullStringPtr(mfaSecret)
	u.MFAEnrolledAt = mapNullTimePtr(enrolledAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, role_id, is_active,
			mfa_secret, force_password_change, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.RoleID, u.IsActive,
		mapOptionalString(u.MFASecret), u.ForcePasswordChange, u.CreatedAt, now,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, force_password_change = 0, updated_at = ?
		WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	return requireRow(res, err)
}

// RecordFailedLogin is deliberately a single UPDATE ... RETURNING so a
// burst of concurrent failures cannot read a stale counter: every call
// observes the increment it caused, and exactly one call crosses the
// threshold and sets locked_until.
func (r *usersRepo) RecordFailedLogin(
	ctx context.Context,
	userID string,
	threshold int,
	lockFor time.Duration,
) (int, *time.Time, error) {
	now := time.Now().UTC()
	lockUntil := now.Add(lockFor)

	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= ? THEN ?
				ELSE locked_until
			END,
			updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts, locked_until`,
		threshold, lockUntil, now, userID,
	)

	var (
		attempts int
		locked   sql.NullTime
	)
	if err := row.Scan(&attempts, &locked); err != nil {
		return 0, nil, mapNotFound(err)
	}
	return attempts, mapNullTimePtr(locked), nil
}

func (r *usersRepo) RecordSuccessfulLogin(ctx context.Context, userID, ip, userAgent string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0,
			locked_until = NULL,
			last_login_at = ?,
			last_login_ip = ?,
			last_login_user_agent = ?,
			updated_at = ?
		WHERE id = ?`,
		now, ip, userAgent, now, userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) SetMFASecret(ctx context.Context, userID, secret string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET mfa_secret = ?, mfa_enabled = 0, mfa_enrolled_at = NULL, updated_at = ?
		WHERE id = ?`,
		secret, time.Now().UTC(), userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET mfa_enabled = 1, mfa_enrolled_at = ?, updated_at = ?
		WHERE id = ? AND mfa_secret IS NOT NULL`,
		now, now, userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET mfa_enabled = 0, mfa_secret = NULL, mfa_enrolled_at = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return requireRow(res, err)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// requireRow converts a zero-row UPDATE/DELETE into ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
