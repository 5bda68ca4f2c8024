package monitor

import (
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

// DefaultThresholds are the anomaly rules applied when the caller
// supplies none. Static configuration; never mutated at runtime.
func DefaultThresholds() []domain.AnomalyThreshold {
	return []domain.AnomalyThreshold{
		{
			EventType: domain.EventLoginFailed,
			MaxEvents: 5,
			Window:    15 * time.Minute,
			Severity:  domain.SeverityWarning,
		},
		{
			EventType: domain.EventUnauthorizedAccess,
			MaxEvents: 3,
			Window:    10 * time.Minute,
			Severity:  domain.SeverityError,
		},
		{
			EventType: domain.EventSQLInjection,
			MaxEvents: 1,
			Window:    5 * time.Minute,
			Severity:  domain.SeverityCritical,
		},
		{
			EventType: domain.EventXSSAttempt,
			MaxEvents: 1,
			Window:    5 * time.Minute,
			Severity:  domain.SeverityCritical,
		},
		{
			EventType: domain.EventRateLimitExceeded,
			MaxEvents: 10,
			Window:    5 * time.Minute,
			Severity:  domain.SeverityWarning,
		},
	}
}
