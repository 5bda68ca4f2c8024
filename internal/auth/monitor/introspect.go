package monitor

import (
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
)

// Filter narrows RecentEvents output. Zero fields match everything.
type Filter struct {
	Type     string
	Severity domain.Severity
	UserID   string
	IP       string
}

func (f Filter) matches(e domain.SecurityEvent) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.IP != "" && e.IP != f.IP {
		return false
	}
	return true
}

// Metrics is a point-in-time snapshot of monitor state.
type Metrics struct {
	TotalEvents      int                     `json:"total_events"`
	EventsByType     map[string]int          `json:"events_by_type"`
	EventsBySeverity map[domain.Severity]int `json:"events_by_severity"`
	BufferedEvents   int                     `json:"buffered_events"`
	TrackedUsers     int                     `json:"tracked_users"`
	TrackedIPs       int                     `json:"tracked_ips"`
	FlaggedUsers     int                     `json:"flagged_users"`
	FlaggedIPs       int                     `json:"flagged_ips"`
}

// AttackSummary aggregates the buffered events inside a recent window.
type AttackSummary struct {
	WindowHours      int                     `json:"window_hours"`
	TotalEvents      int                     `json:"total_events"`
	EventsByType     map[string]int          `json:"events_by_type"`
	EventsBySeverity map[domain.Severity]int `json:"events_by_severity"`
	UniqueUsers      int                     `json:"unique_users"`
	UniqueIPs        int                     `json:"unique_ips"`
	FlaggedUsers     []string                `json:"flagged_users"`
	FlaggedIPs       []string                `json:"flagged_ips"`
}

// RecentEvents returns up to limit matching events, newest first. It
// has no side effects.
func (m *Monitor) RecentEvents(limit int, filter Filter) []domain.SecurityEvent {
	if limit <= 0 {
		limit = 100
	}

	m.mu.Lock()
	all := m.global.snapshot()
	m.mu.Unlock()

	out := make([]domain.SecurityEvent, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.matches(all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

// Metrics returns a snapshot of counters and buffer occupancy.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := make(map[string]int, len(m.countsByType))
	total := 0
	for k, v := range m.countsByType {
		byType[k] = v
		total += v
	}
	bySeverity := make(map[domain.Severity]int, len(m.countsBySeverity))
	for k, v := range m.countsBySeverity {
		bySeverity[k] = v
	}

	return Metrics{
		TotalEvents:      total,
		EventsByType:     byType,
		EventsBySeverity: bySeverity,
		BufferedEvents:   m.global.len(),
		TrackedUsers:     len(m.perUser),
		TrackedIPs:       len(m.perIP),
		FlaggedUsers:     len(m.flaggedUsers),
		FlaggedIPs:       len(m.flaggedIPs),
	}
}

// AttackSummary aggregates buffered events from the last N hours.
func (m *Monitor) AttackSummary(hours int) AttackSummary {
	if hours <= 0 {
		hours = 24
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().UTC().Add(-time.Duration(hours) * time.Hour)
	summary := AttackSummary{
		WindowHours:      hours,
		EventsByType:     make(map[string]int),
		EventsBySeverity: make(map[domain.Severity]int),
	}

	users := make(map[string]struct{})
	ips := make(map[string]struct{})
	for _, e := range m.global.snapshot() {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		summary.TotalEvents++
		summary.EventsByType[e.Type]++
		summary.EventsBySeverity[e.Severity]++
		if e.UserID != "" {
			users[e.UserID] = struct{}{}
		}
		if e.IP != "" {
			ips[e.IP] = struct{}{}
		}
	}
	summary.UniqueUsers = len(users)
	summary.UniqueIPs = len(ips)

	now := m.now()
	for key, at := range m.flaggedUsers {
		if now.Sub(at) <= flagTTL {
			summary.FlaggedUsers = append(summary.FlaggedUsers, key)
		}
	}
	for key, at := range m.flaggedIPs {
		if now.Sub(at) <= flagTTL {
			summary.FlaggedIPs = append(summary.FlaggedIPs, key)
		}
	}

	return summary
}
