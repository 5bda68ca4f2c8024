package domain

import "time"

// MFASession is the server-side record of a pending MFA challenge,
// keyed by the session JWT's jti claim. The JWT alone bounds the
// challenge in time; this row bounds it in attempts.
type MFASession struct {
	ID        string // jti of the mfa session token
	UserID    string
	Attempts  int // failed code submissions (max 5 to prevent brute force)
	ExpiresAt time.Time
	CreatedAt time.Time
}

// MaxMFAAttempts is the number of failed code submissions allowed per
// MFA session before it is invalidated.
const MaxMFAAttempts = 5

// MFAEnrollment is what starting TOTP enrollment hands back: everything
// the user needs to configure their authenticator app.
type MFAEnrollment struct {
	Secret     string // Base32 encoded secret for TOTP
	OTPAuthURL string // otpauth:// URL for QR code generation
	QRCodePNG  []byte // rendered QR code image
	Issuer     string
	Account    string
}

// MFAStatus summarizes a user's second-factor state.
type MFAStatus struct {
	Enabled              bool
	Pending              bool
	EnrolledAt           *time.Time
	BackupCodesRemaining int
}
