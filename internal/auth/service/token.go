package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/cryptox"
	"github.com/folioworks/folio/pkg/idx"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// Refresh exchanges a valid refresh token for a fresh pair. The old
// token is revoked in the same transaction that records the new one, so
// each refresh token works exactly once. The session ID survives the
// rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(refreshToken, jwtx.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if err := claims.ValidateExpiry(); err != nil {
		return nil, ErrInvalidRefresh
	}

	// A valid signature is necessary but not sufficient: the
	// fingerprint row is what makes server-side revocation real.
	record, err := s.Store.RefreshTokens().GetRefreshTokenByHash(
		ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, s.internalFailure(ctx, claims.Subject, "", "", err)
	}

	if record.Revoked {
		// A revoked token showing up again usually means it leaked or a
		// rotation response was lost. Revoke the whole session either way.
		if err := s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, record.SessionID); err != nil {
			log.Error("revoke session after refresh reuse", "session_id", record.SessionID, "err", err)
		}
		s.Monitor.TrackEvent(domain.EventUnauthorizedAccess, domain.SeverityError,
			record.UserID, "", map[string]string{"cause": "refresh_token_reuse"})
		return nil, ErrInvalidRefresh
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, s.internalFailure(ctx, claims.Subject, "", "", err)
	}
	if user.ID != record.UserID || !user.IsActive {
		return nil, ErrInvalidRefresh
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, s.internalFailure(ctx, user.Username, user.ID, "", err)
	}

	accessTTL := s.Settings.AccessTokenTTL(ctx)
	refreshTTL := s.Settings.RefreshTokenTTL(ctx)

	pair, err := s.rotateTokenPair(ctx, &user, role, record, accessTTL, refreshTTL)
	if err != nil {
		return nil, s.internalFailure(ctx, user.Username, user.ID, "", err)
	}

	log.Debug("token pair rotated", "user_id", user.ID, "session_id", record.SessionID)
	return &LoginResult{
		User:      user,
		Role:      role,
		Tokens:    pair,
		SessionID: record.SessionID,
	}, nil
}

// rotateTokenPair mints a new pair under the existing session ID and
// swaps the stored refresh fingerprint atomically.
func (s *AuthService) rotateTokenPair(
	ctx context.Context,
	user *domain.User,
	role domain.Role,
	old domain.RefreshToken,
	accessTTL, refreshTTL time.Duration,
) (domain.TokenPair, error) {
	scope := strings.Join(role.Permissions, " ")

	access, err := s.Codec.MintScoped(
		jwtx.TokenTypeAccess, user.Username, old.SessionID, scope, accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := s.Codec.Mint(jwtx.TokenTypeRefresh, user.Username, old.SessionID, refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, old.TokenHash); err != nil {
			return fmt.Errorf("revoke old refresh token: %w", err)
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    user.ID,
			TokenHash: cryptox.FingerprintToken(refresh),
			SessionID: old.SessionID,
			ExpiresAt: time.Now().UTC().Add(refreshTTL),
		})
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  accessTTL,
		RefreshExpiresIn: refreshTTL,
	}, nil
}

// Logout ends the session named by the access token. It never fails:
// an expired, tampered, or absent token still produces a successful
// logout, the HTTP layer clears cookies regardless, and any revocation
// or audit trouble is logged rather than surfaced. The returned
// username is empty when the token couldn't identify one.
func (s *AuthService) Logout(ctx context.Context, accessToken string) string {
	log := slogx.FromContext(ctx)

	if accessToken == "" {
		return ""
	}

	claims, err := s.Codec.Verify(accessToken, jwtx.TokenTypeAccess)
	if err != nil {
		// Even an expired token still names the session to revoke.
		if !errors.Is(err, jwtx.ErrExpired) {
			return ""
		}
		claims, err = s.decodeUnsafe(accessToken)
		if err != nil {
			return ""
		}
	}

	if claims.SID != "" {
		if err := s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, claims.SID); err != nil {
			log.Error("revoke session on logout", "session_id", claims.SID, "err", err)
		}
	}

	log.Info("logout", "username", claims.Subject, "session_id", claims.SID)
	return claims.Subject
}

// decodeUnsafe extracts claims from an expired token whose signature
// and type already checked out. Only the logout path may use it.
func (s *AuthService) decodeUnsafe(token string) (jwtx.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return jwtx.Claims{}, jwtx.ErrMalformed
	}
	// Signature was validated by Verify before the expiry error; reparse
	// leniently for the payload only.
	claims, err := jwtx.DecodeClaims(parts[1])
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.TokenType != jwtx.TokenTypeAccess {
		return jwtx.Claims{}, jwtx.ErrWrongType
	}
	return claims, nil
}

// Verify resolves the authenticated user for the whoami endpoint.
func (s *AuthService) Verify(ctx context.Context, username string) (domain.User, domain.Role, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, domain.Role{}, fmt.Errorf("verify user: %w", err)
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return domain.User{}, domain.Role{}, fmt.Errorf("verify role: %w", err)
	}
	return user, role, nil
}

// ConfirmPassword re-checks the caller's password for sensitive account
// operations (MFA enroll/disable/reset). The authenticated session is
// not enough for those.
func (s *AuthService) ConfirmPassword(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("confirm password: %w", err)
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueWebsiteEditToken mints a short-lived access token scoped to the
// public-site inline edit flow. Callers must hold the website:edit
// permission.
func (s *AuthService) IssueWebsiteEditToken(ctx context.Context, username string) (string, time.Duration, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return "", 0, fmt.Errorf("issue edit token: %w", err)
	}
	if !user.IsActive {
		return "", 0, ErrAccountInactive
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return "", 0, fmt.Errorf("issue edit token: %w", err)
	}
	if !role.HasPermission(domain.PermWebsiteEdit) {
		return "", 0, ErrPermissionDenied
	}

	token, err := s.Codec.MintScoped(
		jwtx.TokenTypeAccess, user.Username, idx.New().String(),
		domain.PermWebsiteEdit, websiteEditTokenTTL)
	if err != nil {
		return "", 0, fmt.Errorf("issue edit token: %w", err)
	}
	return token, websiteEditTokenTTL, nil
}
