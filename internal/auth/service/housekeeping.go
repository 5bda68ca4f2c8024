package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/store"
)

// HousekeepingService periodically cleans up expired database records
// and aged in-memory security events so refresh_tokens, mfa_sessions,
// login_attempts, and the monitor buffers don't grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Monitor  *monitor.Monitor
	Logger   *slog.Logger
	Interval time.Duration

	// LoginAttemptRetention bounds how long audit rows are kept.
	LoginAttemptRetention time.Duration

	// EventRetentionHours bounds the monitor's in-memory buffers.
	EventRetentionHours int

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService wires a housekeeping worker. A non-positive
// interval defaults to 1 hour; retention defaults are 90 days of audit
// rows and 24 hours of in-memory events.
func NewHousekeepingService(st store.Store, mon *monitor.Monitor, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:                 st,
		Monitor:               mon,
		Logger:                logger,
		Interval:              interval,
		LoginAttemptRetention: 90 * 24 * time.Hour,
		EventRetentionHours:   24,
		stopCh:                make(chan struct{}),
		doneCh:                make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress cleanup
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes expired records. Each deletion is independent;
// failures in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping cleanup")

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	if err := s.Store.MFASessions().DeleteExpiredMFASessions(ctx); err != nil {
		s.Logger.Error("failed to delete expired MFA sessions", "error", err)
	}

	cutoff := time.Now().UTC().Add(-s.LoginAttemptRetention)
	if err := s.Store.LoginAttempts().DeleteLoginAttemptsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune login attempts", "error", err)
	}

	if s.Monitor != nil {
		dropped := s.Monitor.ClearOldEvents(s.EventRetentionHours)
		if dropped > 0 {
			s.Logger.Debug("pruned in-memory security events", "dropped", dropped)
		}
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
