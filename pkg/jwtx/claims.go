package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes what a signed token may be used for. A token
// presented for a purpose other than its own type is always rejected,
// even with a valid signature.
type TokenType string

const (
	// TokenTypeAccess authorizes API requests.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh may only be exchanged for a new token pair.
	TokenTypeRefresh TokenType = "refresh"
	// TokenTypeMFA is the short-lived session token issued between the
	// password check and MFA verification.
	TokenTypeMFA TokenType = "mfa"
)

// Default token TTLs. Operator overrides come from the settings store.
const (
	// DefaultAccessTokenTTL keeps access tokens short-lived; a stolen
	// one goes stale quickly.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRefreshTokenTTL bounds how long a session survives
	// without re-entering credentials.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultMFASessionTTL is the window a user has to complete the
	// second factor after the password succeeded.
	DefaultMFASessionTTL = 5 * time.Minute
)

// Claims are the claims embedded in every token this service signs.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType states the only purpose this token is valid for.
	TokenType TokenType `json:"token_type"`

	// SID is the session ID, stable across refreshes within one login
	// session. Revoking a session invalidates every token carrying it.
	SID string `json:"sid,omitempty"`

	// Username of the authenticated (or authenticating) user. The
	// subject claim carries the username too; this field exists so the
	// payload survives a future switch of sub to opaque IDs.
	Username string `json:"username,omitempty"`

	// MFAPending marks the short-lived session token minted after a
	// correct password when the second factor is still outstanding.
	MFAPending bool `json:"mfa_pending,omitempty"`

	// Scope is the space-delimited permission codes granted to the
	// bearer, resolved from the user's role at mint time.
	Scope string `json:"scope,omitempty"`
}

// Permissions splits the scope claim into individual permission codes.
func (c *Claims) Permissions() []string {
	s := strings.TrimSpace(c.Scope)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// NewClaims builds minimally-correct claims for the given type.
func NewClaims(typ TokenType, subject, sid, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenType:  typ,
		SID:        sid,
		Username:   subject,
		MFAPending: typ == TokenTypeMFA,
	}
}

// DecodeClaims unmarshals a raw base64url JWT payload segment WITHOUT
// any validation. Callers must have verified the token separately; the
// only sanctioned use is reading the session ID out of an
// already-expired token during logout.
func DecodeClaims(payload string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var c Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return c, nil
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf). The codec checks this during Verify as
// well; callers on security-critical paths re-check for defense in
// depth.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
