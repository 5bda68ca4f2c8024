// Package audit is the write-only audit trail for authentication
// activity. The auth core reports into it and never reads back;
// whatever a sink does with a record (structured log line, database
// row) must never fail a login or mask the error that caused it.
package audit

import (
	"context"

	"github.com/folioworks/folio/internal/auth/domain"
)

// Logger is the narrow interface the auth services call.
type Logger interface {
	// LoginAttempt records one authentication attempt, successful or
	// not.
	LoginAttempt(ctx context.Context, attempt domain.LoginAttempt)

	// SecurityEvent records a notable security observation that is not
	// itself a login attempt (lockouts, break-glass use, anomalies).
	SecurityEvent(ctx context.Context, event domain.SecurityEvent)
}

// Nop discards everything. Used in tests.
type Nop struct{}

func (Nop) LoginAttempt(context.Context, domain.LoginAttempt)   {}
func (Nop) SecurityEvent(context.Context, domain.SecurityEvent) {}

// Fanout forwards every record to each sink in order.
type Fanout []Logger

func (f Fanout) LoginAttempt(ctx context.Context, a domain.LoginAttempt) {
	for _, l := range f {
		l.LoginAttempt(ctx, a)
	}
}

func (f Fanout) SecurityEvent(ctx context.Context, e domain.SecurityEvent) {
	for _, l := range f {
		l.SecurityEvent(ctx, e)
	}
}
