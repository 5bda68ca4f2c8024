package http

import (
	"net/http"
	"strconv"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/pkg/authsdk"
	"github.com/folioworks/folio/pkg/httpx"
)

// SecurityHandler exposes the in-memory monitor to operators holding
// security:read. Responses are snapshots, never persisted views.
type SecurityHandler struct {
	Monitor *monitor.Monitor
}

// HandleEvents handles GET /v1/security/events.
//
//	@Summary		Recent security events
//	@Description	Returns buffered events newest first, optionally filtered by type, severity, user_id, or ip.
//	@Tags			Security
//	@Produce		json
//	@Param			limit		query		int		false	"Maximum events to return (default 100)"
//	@Param			type		query		string	false	"Event type filter"
//	@Param			severity	query		string	false	"Severity filter (info, warning, error, critical)"
//	@Param			user_id		query		string	false	"User filter"
//	@Param			ip			query		string	false	"Source IP filter"
//	@Success		200			{array}		domain.SecurityEvent	"Matching events"
//	@Failure		403			{object}	authsdk.APIError		"Missing security:read"
//	@Router			/v1/security/events [get].
func (h *SecurityHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		limit = n
	}

	filter := monitor.Filter{
		Type:     q.Get("type"),
		Severity: domain.Severity(q.Get("severity")),
		UserID:   q.Get("user_id"),
		IP:       q.Get("ip"),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.Monitor.RecentEvents(limit, filter))
}

// HandleMetrics handles GET /v1/security/metrics.
//
//	@Summary		Monitor metrics
//	@Description	Point-in-time counters: totals by type and severity, buffer occupancy, tracked and flagged entities.
//	@Tags			Security
//	@Produce		json
//	@Success		200	{object}	monitor.Metrics		"Counter snapshot"
//	@Failure		403	{object}	authsdk.APIError	"Missing security:read"
//	@Router			/v1/security/metrics [get].
func (h *SecurityHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.Monitor.Metrics())
}

// HandleAttackSummary handles GET /v1/security/attack-summary.
//
//	@Summary		Attack summary
//	@Description	Aggregates buffered events inside a recent window, defaulting to 24 hours.
//	@Tags			Security
//	@Produce		json
//	@Param			hours	query		int	false	"Window size in hours (default 24)"
//	@Success		200		{object}	monitor.AttackSummary	"Window aggregate"
//	@Failure		403		{object}	authsdk.APIError		"Missing security:read"
//	@Router			/v1/security/attack-summary [get].
func (h *SecurityHandler) HandleAttackSummary(w http.ResponseWriter, r *http.Request) {
	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		hours = n
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.Monitor.AttackSummary(hours))
}
