package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth/domain"
)

func TestIsLocked(t *testing.T) {
	svc := &AccountSecurityService{}

	t.Run("no lock", func(t *testing.T) {
		locked, minutes := svc.IsLocked(&domain.User{})
		require.False(t, locked)
		require.Zero(t, minutes)
	})

	t.Run("active lock rounds minutes up", func(t *testing.T) {
		until := time.Now().Add(90 * time.Second)
		locked, minutes := svc.IsLocked(&domain.User{LockedUntil: &until})
		require.True(t, locked)
		require.Equal(t, 2, minutes)
	})

	t.Run("expired lock", func(t *testing.T) {
		until := time.Now().Add(-time.Minute)
		locked, _ := svc.IsLocked(&domain.User{LockedUntil: &until})
		require.False(t, locked)
	})
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)
	svc := s.Auth.Security

	for i := 1; i < DefaultLockoutThreshold; i++ {
		lockedNow, _, err := svc.RecordFailedLogin(ctx, &u, "198.51.100.1")
		require.NoError(t, err)
		require.False(t, lockedNow)
		require.Equal(t, i, u.FailedLoginAttempts)
	}

	lockedNow, minutes, err := svc.RecordFailedLogin(ctx, &u, "198.51.100.1")
	require.NoError(t, err)
	require.True(t, lockedNow)
	require.Equal(t, 15, minutes)
	require.NotNil(t, u.LockedUntil)

	// Further failures while locked don't report a fresh lock.
	lockedNow, _, err = svc.RecordFailedLogin(ctx, &u, "198.51.100.1")
	require.NoError(t, err)
	require.False(t, lockedNow)
}

func TestUpdateLoginMetadataResetsState(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	u := s.createUser(t)
	svc := s.Auth.Security

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _, err := svc.RecordFailedLogin(ctx, &u, "198.51.100.1")
		require.NoError(t, err)
	}

	require.NoError(t, svc.UpdateLoginMetadata(ctx, &u, "203.0.113.10", "folio-test/1.0"))
	require.Zero(t, u.FailedLoginAttempts)
	require.Nil(t, u.LockedUntil)

	got, err := s.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)
	require.Equal(t, "203.0.113.10", got.LastLoginIP)
	require.Equal(t, "folio-test/1.0", got.LastLoginUserAgent)
}

func TestDetectSuspiciousLogin(t *testing.T) {
	svc := &AccountSecurityService{}
	lastLogin := time.Now().Add(-time.Hour)

	t.Run("first login has no baseline", func(t *testing.T) {
		suspicious, reasons := svc.DetectSuspiciousLogin(&domain.User{}, "203.0.113.10", "ua")
		require.False(t, suspicious)
		require.Empty(t, reasons)
	})

	t.Run("same ip and agent", func(t *testing.T) {
		u := &domain.User{
			LastLoginAt:        &lastLogin,
			LastLoginIP:        "203.0.113.10",
			LastLoginUserAgent: "ua",
		}
		suspicious, _ := svc.DetectSuspiciousLogin(u, "203.0.113.10", "ua")
		require.False(t, suspicious)
	})

	t.Run("new ip and agent both flagged", func(t *testing.T) {
		u := &domain.User{
			LastLoginAt:        &lastLogin,
			LastLoginIP:        "203.0.113.10",
			LastLoginUserAgent: "ua",
		}
		suspicious, reasons := svc.DetectSuspiciousLogin(u, "198.51.100.7", "other-ua")
		require.True(t, suspicious)
		require.ElementsMatch(t, []string{"new_ip", "new_user_agent"}, reasons)
	})

	t.Run("missing baseline fields stay quiet", func(t *testing.T) {
		u := &domain.User{LastLoginAt: &lastLogin}
		suspicious, _ := svc.DetectSuspiciousLogin(u, "198.51.100.7", "other-ua")
		require.False(t, suspicious)
	})
}
