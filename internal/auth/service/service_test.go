package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth/audit"
	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/internal/auth/store/drivers/sqlite"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/idx"
	"github.com/folioworks/folio/pkg/jwtx"
)

const testPassword = "correct horse battery staple"

type testStack struct {
	Auth    *AuthService
	MFA     *MFAService
	Store   store.Store
	Codec   *jwtx.Codec
	Monitor *monitor.Monitor
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	dsn := filepath.Join(t.TempDir(), "auth.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec(
		[]byte("0123456789abcdef0123456789abcdef"), "folio-test", "")
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := monitor.New(monitor.Options{Logger: quiet})

	mfa := &MFAService{Store: st, Issuer: "Folio"}
	auth := &AuthService{
		Store:    st,
		Codec:    codec,
		Security: &AccountSecurityService{Store: st},
		MFA:      mfa,
		Settings: &SettingsService{Store: st},
		Audit:    audit.Fanout{audit.NewStoreSink(st, quiet)},
		Monitor:  mon,
	}

	return &testStack{Auth: auth, MFA: mfa, Store: st, Codec: codec, Monitor: mon}
}

type userOpt func(*domain.User)

func inactive() userOpt            { return func(u *domain.User) { u.IsActive = false } }
func forcePasswordChange() userOpt { return func(u *domain.User) { u.ForcePasswordChange = true } }

// createUser seeds a role holding website:edit plus an active user with
// testPassword.
func (s *testStack) createUser(t *testing.T, opts ...userOpt) domain.User {
	t.Helper()
	ctx := context.Background()

	role := domain.Role{
		ID:          idx.New().String(),
		Name:        "editor-" + idx.New().String(),
		Permissions: []string{domain.PermWebsiteEdit, domain.PermSecurityRead},
	}
	require.NoError(t, s.Store.Roles().CreateRole(ctx, role))

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "user-" + idx.New().String(),
		Email:        "user@example.com",
		PasswordHash: hash,
		RoleID:       role.ID,
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(&u)
	}
	require.NoError(t, s.Store.Users().CreateUser(ctx, u))

	got, err := s.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	return got
}

// enableMFA enrolls and verifies MFA for the user out of band and
// returns the TOTP secret plus the plaintext backup codes.
func (s *testStack) enableMFA(t *testing.T, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	enrollment, err := s.MFA.EnrollTOTP(ctx, userID)
	require.NoError(t, err)

	code := totpCode(t, enrollment.Secret)
	codes, err := s.MFA.VerifyEnrollment(ctx, userID, code)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	return enrollment.Secret, codes
}

func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

func (s *testStack) login(t *testing.T, username string) *LoginResult {
	t.Helper()
	result, err := s.Auth.Login(context.Background(), LoginInput{
		Username:  username,
		Password:  testPassword,
		IP:        "203.0.113.10",
		UserAgent: "folio-test/1.0",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}
