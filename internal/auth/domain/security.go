package domain

import "time"

// Severity grades a security event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Security event types tracked by the monitor. Free-form types are
// accepted too; these are the ones with anomaly thresholds or fixed
// emit sites in the core.
const (
	EventLoginSuccess       = "login_success"
	EventLoginFailed        = "login_failed"
	EventAccountLocked      = "account_locked"
	EventSuspiciousLogin    = "suspicious_login"
	EventBreakGlassUsed     = "break_glass_used"
	EventUnauthorizedAccess = "unauthorized_access"
	EventSQLInjection       = "sql_injection_attempt"
	EventXSSAttempt         = "xss_attempt"
	EventRateLimitExceeded  = "rate_limit_exceeded"
	EventAnomalyDetected    = "anomaly_detected"
	EventMFAFailed          = "mfa_failed"
	EventMFALockout         = "mfa_lockout"
	EventBackupCodeUsed     = "backup_code_used"
	EventInternalError      = "internal_error"
)

// SecurityEvent is one observation fed to the monitor. Events live only
// in memory; durable audit goes through the audit logger instead.
type SecurityEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// AnomalyThreshold declares when repeated events of one type inside a
// sliding window count as an anomaly.
type AnomalyThreshold struct {
	EventType string
	MaxEvents int
	Window    time.Duration
	Severity  Severity
}

// LoginAttempt is the durable audit row for every authentication
// attempt, successful or not. The core appends these and never reads
// them back.
type LoginAttempt struct {
	ID        string
	Username  string
	UserID    string // empty when the username resolved to no user
	IP        string
	UserAgent string
	Success   bool
	Reason    string // failure reason code, empty on success
	CreatedAt time.Time
}

// Login attempt reason codes.
const (
	ReasonUnknownUser     = "unknown_user"
	ReasonBadPassword     = "bad_password"
	ReasonAccountLocked   = "account_locked"
	ReasonAccountInactive = "account_inactive"
	ReasonPasswordExpired = "password_reset_required"
	ReasonMFARequired     = "mfa_required"
	ReasonMFABadCode      = "mfa_bad_code"
	ReasonMFAExpired      = "mfa_session_expired"
	ReasonMFATooMany      = "mfa_too_many_attempts"
	ReasonInternal        = "internal_error"
)
