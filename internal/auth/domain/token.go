package domain

import "time"

// TokenPair is a freshly minted access/refresh token set. Tokens only
// ever travel to browsers inside httpOnly cookies; this struct is
// internal plumbing between the service and the HTTP layer.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// RefreshToken models the stored refresh token record. The signed JWT
// itself is never stored; TokenHash is its SHA-256 fingerprint, which
// is what makes server-side revocation of a stateless token possible.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	SessionID string // Session ID (SID) that persists across token refreshes
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
