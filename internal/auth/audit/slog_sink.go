package audit

import (
	"context"
	"log/slog"

	"github.com/folioworks/folio/internal/auth/domain"
)

// SlogSink writes audit records as structured log lines.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	return &SlogSink{log: log.With("component", "audit")}
}

func (s *SlogSink) LoginAttempt(ctx context.Context, a domain.LoginAttempt) {
	attrs := []any{
		"username", a.Username,
		"ip", a.IP,
		"user_agent", a.UserAgent,
		"success", a.Success,
	}
	if a.UserID != "" {
		attrs = append(attrs, "user_id", a.UserID)
	}
	if a.Reason != "" {
		attrs = append(attrs, "reason", a.Reason)
	}

	if a.Success {
		s.log.InfoContext(ctx, "login attempt", attrs...)
	} else {
		s.log.WarnContext(ctx, "login attempt", attrs...)
	}
}

func (s *SlogSink) SecurityEvent(ctx context.Context, e domain.SecurityEvent) {
	attrs := []any{
		"event_type", e.Type,
		"severity", string(e.Severity),
	}
	if e.UserID != "" {
		attrs = append(attrs, "user_id", e.UserID)
	}
	if e.IP != "" {
		attrs = append(attrs, "ip", e.IP)
	}
	for k, v := range e.Details {
		attrs = append(attrs, "detail_"+k, v)
	}

	switch e.Severity {
	case domain.SeverityCritical, domain.SeverityError:
		s.log.ErrorContext(ctx, "security event", attrs...)
	case domain.SeverityWarning:
		s.log.WarnContext(ctx, "security event", attrs...)
	default:
		s.log.InfoContext(ctx, "security event", attrs...)
	}
}
