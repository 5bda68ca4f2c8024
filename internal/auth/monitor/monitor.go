// Package monitor tracks security events in bounded in-memory buffers
// and flags anomalous activity per user and per IP against sliding
// window thresholds. State is process-local: in a multi-process
// deployment each process detects independently, which is acceptable
// for advisory detection but means thresholds are per-process.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/pkg/idx"
)

const (
	defaultGlobalBuffer = 10_000
	defaultKeyBuffer    = 100

	// flagTTL is how long a flagged user or IP stays suspicious.
	flagTTL = time.Hour
)

// AlertCallback receives every critical event. Callbacks run on their
// own goroutine; a panic inside one is recovered and logged without
// affecting the request that triggered it.
type AlertCallback func(domain.SecurityEvent)

type Options struct {
	// Thresholds replaces DefaultThresholds when non-nil.
	Thresholds []domain.AnomalyThreshold
	// GlobalBuffer caps the global ring (default 10,000).
	GlobalBuffer int
	// KeyBuffer caps each per-user and per-IP ring (default 100).
	KeyBuffer int
	Logger    *slog.Logger
}

// Monitor is explicitly constructed and injected; there is no package
// level instance.
type Monitor struct {
	mu sync.Mutex

	thresholds []domain.AnomalyThreshold
	keyBuffer  int
	log        *slog.Logger

	global  *ring
	perUser map[string]*ring
	perIP   map[string]*ring

	countsByType     map[string]int
	countsBySeverity map[domain.Severity]int

	flaggedUsers map[string]time.Time
	flaggedIPs   map[string]time.Time

	callbacks []AlertCallback

	now func() time.Time
}

func New(opts Options) *Monitor {
	if opts.Thresholds == nil {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.GlobalBuffer <= 0 {
		opts.GlobalBuffer = defaultGlobalBuffer
	}
	if opts.KeyBuffer <= 0 {
		opts.KeyBuffer = defaultKeyBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Monitor{
		thresholds:       opts.Thresholds,
		keyBuffer:        opts.KeyBuffer,
		log:              opts.Logger.With("component", "monitor"),
		global:           newRing(opts.GlobalBuffer),
		perUser:          make(map[string]*ring),
		perIP:            make(map[string]*ring),
		countsByType:     make(map[string]int),
		countsBySeverity: make(map[domain.Severity]int),
		flaggedUsers:     make(map[string]time.Time),
		flaggedIPs:       make(map[string]time.Time),
		now:              time.Now,
	}
}

// TrackEvent records one security event. Events at error or critical
// severity run anomaly detection immediately; critical events also fire
// the registered alert callbacks.
func (m *Monitor) TrackEvent(
	eventType string,
	severity domain.Severity,
	userID, ip string,
	details map[string]string,
) domain.SecurityEvent {
	event := domain.SecurityEvent{
		ID:        idx.New().String(),
		Type:      eventType,
		Severity:  severity,
		Timestamp: m.now().UTC(),
		UserID:    userID,
		IP:        ip,
		Details:   details,
	}

	m.mu.Lock()
	m.appendLocked(event)

	var anomalies []domain.SecurityEvent
	if severity == domain.SeverityError || severity == domain.SeverityCritical {
		anomalies = m.detectLocked(userID, ip, eventType)
	}
	m.mu.Unlock()

	if severity == domain.SeverityCritical {
		m.fireCallbacks(event)
	}
	for _, a := range anomalies {
		if a.Severity == domain.SeverityCritical {
			m.fireCallbacks(a)
		}
	}

	return event
}

// DetectAnomaly checks the user's and IP's recent events against every
// applicable threshold (all of them when eventType is empty). A
// detected anomaly flags the user/IP and records an anomaly_detected
// event.
func (m *Monitor) DetectAnomaly(userID, ip, eventType string) bool {
	m.mu.Lock()
	anomalies := m.detectLocked(userID, ip, eventType)
	m.mu.Unlock()

	for _, a := range anomalies {
		if a.Severity == domain.SeverityCritical {
			m.fireCallbacks(a)
		}
	}
	return len(anomalies) > 0
}

// appendLocked adds the event to the global ring and to the per-key
// rings that apply.
func (m *Monitor) appendLocked(e domain.SecurityEvent) {
	m.global.add(e)
	if e.UserID != "" {
		r, ok := m.perUser[e.UserID]
		if !ok {
			r = newRing(m.keyBuffer)
			m.perUser[e.UserID] = r
		}
		r.add(e)
	}
	if e.IP != "" {
		r, ok := m.perIP[e.IP]
		if !ok {
			r = newRing(m.keyBuffer)
			m.perIP[e.IP] = r
		}
		r.add(e)
	}
	m.countsByType[e.Type]++
	m.countsBySeverity[e.Severity]++
}

// detectLocked evaluates thresholds and returns the anomaly events it
// recorded. The anomaly events themselves are appended without another
// detection pass, so detection can never recurse.
func (m *Monitor) detectLocked(userID, ip, eventType string) []domain.SecurityEvent {
	now := m.now().UTC()
	var anomalies []domain.SecurityEvent

	for _, th := range m.thresholds {
		if eventType != "" && th.EventType != eventType {
			continue
		}

		userCount := m.countRecentLocked(m.perUser[userID], th, now)
		ipCount := m.countRecentLocked(m.perIP[ip], th, now)
		if userCount < th.MaxEvents && ipCount < th.MaxEvents {
			continue
		}

		if userID != "" && userCount >= th.MaxEvents {
			m.flaggedUsers[userID] = now
		}
		if ip != "" && ipCount >= th.MaxEvents {
			m.flaggedIPs[ip] = now
		}

		anomaly := domain.SecurityEvent{
			ID:        idx.New().String(),
			Type:      domain.EventAnomalyDetected,
			Severity:  th.Severity,
			Timestamp: now,
			UserID:    userID,
			IP:        ip,
			Details: map[string]string{
				"trigger_event_type": th.EventType,
				"window":             th.Window.String(),
			},
		}
		m.appendLocked(anomaly)
		anomalies = append(anomalies, anomaly)

		m.log.Warn("anomaly detected",
			"event_type", th.EventType,
			"severity", string(th.Severity),
			"user_id", userID,
			"ip", ip,
		)
	}

	return anomalies
}

func (m *Monitor) countRecentLocked(r *ring, th domain.AnomalyThreshold, now time.Time) int {
	if r == nil {
		return 0
	}
	cutoff := now.Add(-th.Window)
	count := 0
	for _, e := range r.snapshot() {
		if e.Type == th.EventType && !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// IsSuspiciousUser reports whether the user was flagged within the last
// hour. Expired flags are evicted lazily on check.
func (m *Monitor) IsSuspiciousUser(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkFlagLocked(m.flaggedUsers, userID)
}

// IsSuspiciousIP reports whether the IP was flagged within the last
// hour.
func (m *Monitor) IsSuspiciousIP(ip string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkFlagLocked(m.flaggedIPs, ip)
}

func (m *Monitor) checkFlagLocked(flags map[string]time.Time, key string) bool {
	at, ok := flags[key]
	if !ok {
		return false
	}
	if m.now().Sub(at) > flagTTL {
		delete(flags, key)
		return false
	}
	return true
}

// RegisterAlertCallback adds a callback fired for every critical event.
func (m *Monitor) RegisterAlertCallback(fn AlertCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func (m *Monitor) fireCallbacks(e domain.SecurityEvent) {
	m.mu.Lock()
	callbacks := make([]AlertCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		go func(fn AlertCallback) {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("alert callback panicked", "panic", r, "event_type", e.Type)
				}
			}()
			fn(e)
		}(fn)
	}
}

// ClearOldEvents drops buffered events older than the given number of
// hours and prunes expired flags. Returns how many events were dropped.
// Safe to call concurrently with TrackEvent.
func (m *Monitor) ClearOldEvents(hours int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().UTC().Add(-time.Duration(hours) * time.Hour)
	keep := func(e domain.SecurityEvent) bool { return !e.Timestamp.Before(cutoff) }

	dropped := m.global.dropOlderThan(keep)
	for key, r := range m.perUser {
		dropped += r.dropOlderThan(keep)
		if r.len() == 0 {
			delete(m.perUser, key)
		}
	}
	for key, r := range m.perIP {
		dropped += r.dropOlderThan(keep)
		if r.len() == 0 {
			delete(m.perIP, key)
		}
	}

	now := m.now()
	for key, at := range m.flaggedUsers {
		if now.Sub(at) > flagTTL {
			delete(m.flaggedUsers, key)
		}
	}
	for key, at := range m.flaggedIPs {
		if now.Sub(at) > flagTTL {
			delete(m.flaggedIPs, key)
		}
	}

	return dropped
}
