package store

import (
	"context"
	"errors"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, and to make nested transactions hard to
// write by accident.
type Store interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
	MFASessions() MFASessions
	BackupCodes() BackupCodes
	Settings() Settings
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn inside a transaction, committing when fn
	// returns nil and rolling back otherwise. Prefer this over Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername looks a user up during login. Username matching
	// is case-sensitive.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2), clears the
	// force_password_change flag, and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// RecordFailedLogin atomically increments failed_login_attempts
	// and, when the new count reaches threshold, sets locked_until to
	// now+lockFor. Returns the new count and lock expiry in one
	// statement so concurrent failures can never under-count.
	RecordFailedLogin(ctx context.Context, userID string, threshold int, lockFor time.Duration) (attempts int, lockedUntil *time.Time, err error)

	// RecordSuccessfulLogin zeroes the failure counter, clears any
	// lock, and stamps the last-login metadata in one statement.
	RecordSuccessfulLogin(ctx context.Context, userID, ip, userAgent string) error

	// SetMFASecret stores a pending TOTP secret with mfa_enabled left
	// false.
	SetMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA flips mfa_enabled on and stamps mfa_enrolled_at.
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears the secret, enabled flag, and enrolled_at.
	DisableMFA(ctx context.Context, userID string) error

	// DeleteUser cascades to refresh_tokens and backup_codes (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	// GetRoleByID fetches a role by its ID.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its name (for bootstrap).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// ListAll returns all roles in the system.
	ListAll(ctx context.Context) ([]domain.Role, error)

	// IsEmpty returns true if there are no roles.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token record by its SHA-256
	// fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeSessionRefreshTokens revokes every token in one login
	// session (logout).
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g.,
	// password reset, MFA device reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type MFASessions interface {
	// CreateMFASession creates a new MFA challenge session.
	CreateMFASession(ctx context.Context, session domain.MFASession) error

	// GetMFASession retrieves a non-expired MFA session by its ID (the
	// session token's jti).
	GetMFASession(ctx context.Context, id string) (domain.MFASession, error)

	// IncrementMFASessionAttempts bumps the failed attempt counter and
	// returns the updated session.
	IncrementMFASessionAttempts(ctx context.Context, id string) (domain.MFASession, error)

	// DeleteMFASession removes a session once consumed or exhausted.
	DeleteMFASession(ctx context.Context, id string) error

	// DeleteExpiredMFASessions is housekeeping.
	DeleteExpiredMFASessions(ctx context.Context) error
}

type BackupCodes interface {
	// ReplaceBackupCodes deletes any existing codes for the user and
	// inserts the given hashes. Callers run this inside WithTx.
	ReplaceBackupCodes(ctx context.Context, userID string, codeHashes []string) error

	// ConsumeBackupCode deletes the matching code row. It reports
	// consumed=true only when exactly one row was deleted, which is
	// what makes each code single-use even under concurrent attempts.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (consumed bool, err error)

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of unused codes left.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

type Settings interface {
	// GetSetting returns one settings row, ErrNotFound when the key has
	// no override.
	GetSetting(ctx context.Context, key string) (domain.Setting, error)

	// PutSetting upserts an override.
	PutSetting(ctx context.Context, key, value string) error

	// DeleteSetting removes an override, reverting to the default.
	DeleteSetting(ctx context.Context, key string) error
}

type LoginAttempts interface {
	// CreateLoginAttempt appends an audit row. Append-only; the auth
	// core never reads these back.
	CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// DeleteLoginAttemptsBefore prunes audit rows older than cutoff
	// (housekeeping, retention policy).
	DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) error
}
