package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/folioworks/folio/internal/auth/monitor"
	"github.com/folioworks/folio/internal/auth/service"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/cookiex"
	"github.com/folioworks/folio/pkg/httpx"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"

	_ "github.com/folioworks/folio/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	cookies      *cookiex.Manager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	MFAService  *service.MFAService
	Monitor     *monitor.Monitor
}

func NewRouter(
	verifier jwtx.Verifier,
	cookies *cookiex.Manager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		cookies:      cookies,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFAManagement()
	r.registerSecurity()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
//
//	@title			Folio Authentication Service API
//	@version		0.1.0
//	@description	Authentication and account-security service for the Folio CMS.
//	@description
//	@description			Tokens travel in httpOnly cookies; state-changing requests must echo the CSRF cookie in the X-CSRF-Token header.
//
//	@license.name			MIT
//	@license.url			https://opensource.org/licenses/MIT
//
//	@host					localhost:8080
//	@BasePath				/
//
//	@schemes				http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed wires the standard protection for cookie-session endpoints:
// access-token authn, then CSRF on mutations, then per-user limits.
func (r *Router) authed(h http.Handler, limit httpx.RateLimitConfig, perms ...string) http.Handler {
	mws := []httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier, r.cookies),
		httpx.CSRFMiddleware(r.cookies),
	}
	if len(perms) > 0 {
		mws = append(mws, httpx.RequireAnyPermission(perms...))
	}
	mws = append(mws, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	verifyLogin := &MFAVerifyLoginHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /v1/auth/mfa/verify-login",
		httpx.Chain(verifyLogin,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refresh := &RefreshHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /v1/auth/refresh-token",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Logout is deliberately unauthenticated: it must succeed with
	// corrupted or absent cookies.
	logout := &LogoutHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	verify := &VerifyHandler{AuthService: r.AuthService}
	r.Mux.Handle("GET /v1/auth/verify",
		httpx.Chain(verify,
			httpx.AuthnMiddleware(r.verifier, r.cookies),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	csrf := &CSRFTokenHandler{Cookies: r.cookies}
	r.Mux.Handle("GET /v1/auth/csrf-token",
		httpx.Chain(csrf,
			httpx.AuthnMiddleware(r.verifier, r.cookies),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	editToken := &WebsiteEditTokenHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/website-token",
		r.authed(editToken, httpx.ModerateLimit),
	)
}

func (r *Router) registerMFAManagement() {
	h := &MFAManageHandler{AuthService: r.AuthService, MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/auth/mfa/enroll",
		r.authed(http.HandlerFunc(h.HandleEnroll), httpx.ModerateLimit))

	// Strict: confirming enrollment brute-forces TOTP codes otherwise.
	r.Mux.Handle("POST /v1/auth/mfa/verify-enrollment",
		r.authed(http.HandlerFunc(h.HandleVerifyEnrollment), httpx.StrictLimit))

	r.Mux.Handle("POST /v1/auth/mfa/disable",
		r.authed(http.HandlerFunc(h.HandleDisable), httpx.ModerateLimit))

	r.Mux.Handle("POST /v1/auth/mfa/reset-device",
		r.authed(http.HandlerFunc(h.HandleResetDevice), httpx.ModerateLimit))

	r.Mux.Handle("POST /v1/auth/mfa/regenerate-backup-codes",
		r.authed(http.HandlerFunc(h.HandleRegenerateBackupCodes), httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/auth/mfa/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.AuthnMiddleware(r.verifier, r.cookies),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSecurity() {
	h := &SecurityHandler{Monitor: r.Monitor}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier, r.cookies),
			httpx.RequireAnyPermission("security:read"),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /v1/security/events", secured(h.HandleEvents))
	r.Mux.Handle("GET /v1/security/metrics", secured(h.HandleMetrics))
	r.Mux.Handle("GET /v1/security/attack-summary", secured(h.HandleAttackSummary))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
