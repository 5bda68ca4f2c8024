package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/folioworks/folio/pkg/httpx"
)

// APIError is the error envelope the auth endpoints return. It
// implements error so the SDK client can surface it directly.
type APIError struct {
	// StatusCode is the HTTP status for this error.
	StatusCode int `json:"-"`

	// Detail is the human-readable message. Credential failures share
	// one deliberately vague detail string.
	Detail string `json:"detail"`

	// LockedUntilMinutes is set only on lockout responses.
	LockedUntilMinutes int `json:"locked_until_minutes,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: %d %s", e.StatusCode, e.Detail)
}

// WriteError writes the error to an HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode: http.StatusBadRequest,
		Detail:     "malformed request",
	}

	// ErrInvalidCredentials is shared by unknown-user and wrong-password
	// outcomes; the two must stay indistinguishable.
	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "invalid username or password",
	}

	ErrAccountInactive = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "account is inactive",
	}

	ErrPasswordChangeRequired = &APIError{
		StatusCode: http.StatusForbidden,
		Detail:     "password change required before login",
	}

	ErrMissingRefreshToken = &APIError{
		StatusCode: http.StatusBadRequest,
		Detail:     "refresh token cookie missing",
	}

	ErrInvalidRefreshToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "invalid or expired refresh token",
	}

	ErrInvalidMFASession = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "invalid or expired MFA session",
	}

	ErrInvalidMFACode = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "invalid MFA code",
	}

	ErrTooManyMFAAttempts = &APIError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "too many failed MFA attempts, log in again",
	}

	ErrPermissionDenied = &APIError{
		StatusCode: http.StatusForbidden,
		Detail:     "permission denied",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Detail:     "internal server error",
	}
)

// ErrLocked builds the lockout response with its retry hint. The
// failed-attempt count is deliberately not included.
func ErrLocked(minutes int) *APIError {
	return &APIError{
		StatusCode:         http.StatusLocked,
		Detail:             "account temporarily locked",
		LockedUntilMinutes: minutes,
	}
}
