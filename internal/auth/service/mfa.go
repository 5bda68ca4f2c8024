package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/cryptox"
)

const (
	backupCodeCount = 10 // codes per batch
	qrCodeSize      = 200

	// backupCodeCharset deliberately omits ambiguous characters (0/O,
	// 1/I/L) since users type these codes by hand.
	backupCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFANotEnrolled    = errors.New("MFA enrollment not started")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
)

type MFAService struct {
	Store  store.Store
	Issuer string // Issuer name for TOTP (e.g., "Folio")
}

// EnrollTOTP generates a TOTP secret for the user and returns it along
// with the otpauth URL and a rendered QR code. MFA is NOT enabled yet;
// the user must confirm a code via VerifyEnrollment first. Re-enrolling
// while already enabled requires an explicit Disable first.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("load user: %w", err)
	}
	if u.MFAEnabled {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	enrollment, secret, err := s.generateEnrollment(u.Username)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	// Store the secret in pending state (mfa_enabled stays false).
	if err := s.Store.Users().SetMFASecret(ctx, userID, secret); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store MFA secret: %w", err)
	}

	return enrollment, nil
}

// VerifyEnrollment confirms the pending secret with a live TOTP code,
// enables MFA, and returns the one-time plaintext backup code batch.
// The plaintext codes exist only in this response; the store keeps
// fingerprints.
func (s *MFAService) VerifyEnrollment(ctx context.Context, userID, code string) ([]string, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}
	if u.MFASecret == nil || *u.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}

	if !VerifyTOTP(*u.MFASecret, code) {
		return nil, ErrInvalidTOTPCode
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().ReplaceBackupCodes(ctx, userID, hashes); err != nil {
			return fmt.Errorf("store backup codes: %w", err)
		}
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return fmt.Errorf("enable MFA: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Disable turns MFA off: secret, enrollment timestamp, and backup
// codes are all cleared in one transaction.
func (s *MFAService) Disable(ctx context.Context, userID string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !u.MFAEnabled && u.MFASecret == nil {
		return ErrMFANotEnabled
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("delete backup codes: %w", err)
		}
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return fmt.Errorf("disable MFA: %w", err)
		}
		return nil
	})
}

// ResetDevice issues a fresh secret and backup code batch for a user
// who lost their authenticator, without ever passing through a
// window where MFA is off. Returns the new enrollment material and
// plaintext backup codes.
func (s *MFAService) ResetDevice(ctx context.Context, userID string) (domain.MFAEnrollment, []string, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, nil, fmt.Errorf("load user: %w", err)
	}
	if !u.MFAEnabled {
		return domain.MFAEnrollment{}, nil, ErrMFANotEnabled
	}

	enrollment, secret, err := s.generateEnrollment(u.Username)
	if err != nil {
		return domain.MFAEnrollment{}, nil, err
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return domain.MFAEnrollment{}, nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetMFASecret(ctx, userID, secret); err != nil {
			return fmt.Errorf("store MFA secret: %w", err)
		}
		// SetMFASecret drops back to pending; re-enable in the same tx
		// so the user is never observably without MFA.
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return fmt.Errorf("re-enable MFA: %w", err)
		}
		if err := tx.BackupCodes().ReplaceBackupCodes(ctx, userID, hashes); err != nil {
			return fmt.Errorf("replace backup codes: %w", err)
		}
		// The old device's tokens are no longer trustworthy.
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return domain.MFAEnrollment{}, nil, err
	}

	return enrollment, codes, nil
}

// RegenerateBackupCodes replaces the whole batch in one transaction and
// returns the new plaintext codes.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.MFAEnabled {
		return nil, ErrMFANotEnabled
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.BackupCodes().ReplaceBackupCodes(ctx, userID, hashes)
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// VerifyBackupCode consumes a backup code. Consumption is a single
// conditional DELETE in the store, so a code can never be accepted
// twice. Returns whether the code was valid and how many codes remain.
func (s *MFAService) VerifyBackupCode(ctx context.Context, userID, code string) (bool, int, error) {
	hash := cryptox.FingerprintToken(NormalizeBackupCode(code))

	consumed, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, userID, hash)
	if err != nil {
		return false, 0, fmt.Errorf("consume backup code: %w", err)
	}

	remaining, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
	if err != nil {
		return consumed, 0, fmt.Errorf("count backup codes: %w", err)
	}
	return consumed, remaining, nil
}

// Status summarizes the user's second-factor state.
func (s *MFAService) Status(ctx context.Context, userID string) (domain.MFAStatus, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, fmt.Errorf("load user: %w", err)
	}

	remaining, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, fmt.Errorf("count backup codes: %w", err)
	}

	return domain.MFAStatus{
		Enabled:              u.MFAEnabled,
		Pending:              u.MFAPending(),
		EnrolledAt:           u.MFAEnrolledAt,
		BackupCodesRemaining: remaining,
	}, nil
}

// VerifyTOTP checks a 6-digit code against the secret, allowing one
// period of clock skew in either direction.
func VerifyTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// NormalizeBackupCode canonicalizes user input before fingerprinting:
// uppercase, surrounding whitespace stripped.
func NormalizeBackupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *MFAService) generateEnrollment(username string) (domain.MFAEnrollment, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		Period:      30,
		SecretSize:  20, // 160-bit secret
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollment{}, "", fmt.Errorf("generate TOTP key: %w", err)
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return domain.MFAEnrollment{}, "", fmt.Errorf("render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.MFAEnrollment{}, "", fmt.Errorf("encode QR code: %w", err)
	}

	return domain.MFAEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCodePNG:  buf.Bytes(),
		Issuer:     s.Issuer,
		Account:    username,
	}, key.Secret(), nil
}

// generateBackupCodes produces a batch of XXXX-XXXX codes and their
// fingerprints.
func generateBackupCodes() ([]string, []string, error) {
	codes := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range codes {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes[i] = code
		hashes[i] = cryptox.FingerprintToken(code)
	}
	return codes, hashes, nil
}

func randomBackupCode() (string, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, r := range raw {
		if i == 4 {
			b.WriteByte('-')
		}
		b.WriteByte(backupCodeCharset[int(r)%len(backupCodeCharset)])
	}
	return b.String(), nil
}
