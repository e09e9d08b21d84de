package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clouddoctor/server/internal/cache"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/slogx"

	_ "github.com/clouddoctor/server/api/docs" // Swagger docs
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	gate         *Gate
	cookies      CookiePolicy
	accessTTL    time.Duration
	refreshTTL   time.Duration
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *Metrics

	store store.Store
	cache cache.TokenCache

	Sessions     *service.SessionService
	Registration *service.RegistrationService
	Users        *service.UserService
	Content      *service.ContentService
	Admin        *service.AdminService
	Audit        *service.AuditService
}

func NewRouter(
	st store.Store,
	tc cache.TokenCache,
	sessions *service.SessionService,
	cookies CookiePolicy,
	accessTTL, refreshTTL time.Duration,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	registry := prometheus.NewRegistry()
	r := &Router{
		Mux:          http.NewServeMux(),
		gate:         &Gate{Sessions: sessions},
		cookies:      cookies,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		registry:     registry,
		metrics:      NewMetrics(registry),
		store:        st,
		cache:        tc,
		Sessions:     sessions,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerContent()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			CloudDoctor API
//	@version		0.1.0
//	@description	Session-token backend for the CloudDoctor cloud-security-guideline app.
//	@description
//	@description	Access tokens are short-lived HS256 JWTs carried in an HttpOnly cookie
//	@description	(or an Authorization Bearer header for API clients). Refresh happens at
//	@description	/api/auth/refresh; a user holds at most one live session at a time.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Sessions:     r.Sessions,
		Registration: r.Registration,
		Cookies:      r.cookies,
		AccessTTL:    r.accessTTL,
		RefreshTTL:   r.refreshTTL,
		Metrics:      r.metrics,
	}

	// Credential endpoints get the strict limit: they are the brute-force
	// surface.
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Signup-form probes fire on every keystroke debounce, so they get a
	// looser limit.
	r.Mux.Handle("GET /api/auth/check-username",
		httpx.Chain(http.HandlerFunc(h.HandleCheckUsername),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/check-email",
		httpx.Chain(http.HandlerFunc(h.HandleCheckEmail),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerContent() {
	h := &ContentHandler{Content: r.Content}

	// Public reads: anonymous and logged-in requests share these routes, so
	// the gate only annotates, never rejects.
	public := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.gate.Optional(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		)
	}

	r.Mux.Handle("GET /api/guidelines", public(h.HandleListGuidelines))
	r.Mux.Handle("GET /api/guidelines/{id}", public(h.HandleGetGuideline))
	r.Mux.Handle("GET /api/providers", public(h.HandleListProviders))
	r.Mux.Handle("GET /api/services", public(h.HandleListServices))
}

func (r *Router) registerUsers() {
	h := &UserHandler{Users: r.Users, Audit: r.Audit}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			r.gate.Protect(),
			httpx.RateLimitByIP(limit),
		)
	}

	r.Mux.Handle("GET /api/user/me", secured(h.HandleMe, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/user/me", secured(h.HandleUpdateProfile, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/user/uuid", secured(h.HandleUUID, httpx.LenientLimit))
	r.Mux.Handle("POST /api/user/change-password", secured(h.HandleChangePassword, httpx.StrictLimit))
	r.Mux.Handle("POST /api/user/checklist", secured(h.HandleSaveChecklist, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/user/checklists", secured(h.HandleListChecklists, httpx.LenientLimit))
	r.Mux.Handle("DELETE /api/user/checklists/{id}", secured(h.HandleDeleteChecklist, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/user/audit/start", secured(h.HandleStartAudit, httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Admin: r.Admin, Content: r.Content}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.gate.Protect(),
			RequireAuthority("ROLE_ADMIN"),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /api/admin/guidelines", secured(h.HandleCreateGuideline))
	r.Mux.Handle("PUT /api/admin/guidelines/{id}", secured(h.HandleUpdateGuideline))
	r.Mux.Handle("DELETE /api/admin/guidelines/{id}", secured(h.HandleDeleteGuideline))
	r.Mux.Handle("POST /api/admin/services", secured(h.HandleCreateService))
	r.Mux.Handle("DELETE /api/admin/services/{id}", secured(h.HandleDeleteService))
	r.Mux.Handle("GET /api/admin/users", secured(h.HandleListUsers))
	r.Mux.Handle("POST /api/admin/users/{id}/active", secured(h.HandleSetUserActive))
	r.Mux.Handle("DELETE /api/admin/users/{id}", secured(h.HandleDeleteUser))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics",
		promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}),
	)
}
