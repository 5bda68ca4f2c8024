package audit

import (
	"context"
	"log/slog"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/idx"
)

// StoreSink appends login attempts as durable login_attempts rows.
// Security events stay log-only; they already live in the monitor's
// buffers for introspection.
type StoreSink struct {
	store store.Store
	log   *slog.Logger
}

func NewStoreSink(st store.Store, log *slog.Logger) *StoreSink {
	return &StoreSink{store: st, log: log}
}

func (s *StoreSink) LoginAttempt(ctx context.Context, a domain.LoginAttempt) {
	if a.ID == "" {
		a.ID = idx.New().String()
	}
	if err := s.store.LoginAttempts().CreateLoginAttempt(ctx, a); err != nil {
		// A broken audit table must not break logins.
		s.log.ErrorContext(ctx, "audit write failed", "err", err, "username", a.Username)
	}
}

func (s *StoreSink) SecurityEvent(ctx context.Context, e domain.SecurityEvent) {}
