package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/metrics/export/prometheus"
	"github.com/shopkit/shopgate/middleware"
	"github.com/shopkit/shopgate/rate"
	"github.com/shopkit/shopgate/redirect"
)

// Config carries the optional collaborators of a [Server].
type Config struct {
	// Logger is used for request logging and panic recovery.
	Logger zerolog.Logger

	// CORS applies to every API route.
	CORS middleware.CORSOptions

	// LoginLimiter, when set, gives the credential routes a stricter budget
	// than the gateway default.
	LoginLimiter rate.Limiter

	// Redirects, when set, is mounted outermost so legacy paths are rewritten
	// before any route matching happens.
	Redirects *redirect.Handler

	// Registrar enables POST /api/auth/register. Nil disables the route.
	Registrar shopgate.UserRegistrar

	// RegisterRole is the role assigned to self-registered accounts.
	// Default "customer".
	RegisterRole string

	// Catalog is the product list served by GET /api/products. Nil serves
	// the built-in demo catalog.
	Catalog []Product
}

// Server is the assembled HTTP surface. It implements http.Handler.
type Server struct {
	gw     *shopgate.Gateway
	cfg    Config
	router chi.Router
}

// NewServer wires all routes and returns the server.
func NewServer(gw *shopgate.Gateway, cfg Config) *Server {
	if cfg.RegisterRole == "" {
		cfg.RegisterRole = "customer"
	}
	if cfg.Catalog == nil {
		cfg.Catalog = demoCatalog()
	}

	s := &Server{gw: gw, cfg: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	gw := s.gw
	logger := s.cfg.Logger

	r := chi.NewRouter()
	// Logging wraps Recover: the 500 written on a panic passes through the
	// status-capturing writer, so the access log records the failed request.
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	if s.cfg.Redirects != nil {
		r.Use(s.cfg.Redirects.Middleware)
	}

	cors := middleware.CORS(s.cfg.CORS)
	limit := middleware.RateLimit(gw, middleware.RateLimitOptions{})
	loginLimit := middleware.RateLimit(gw, middleware.RateLimitOptions{Limiter: s.cfg.LoginLimiter})
	jsonBody := middleware.Validate(middleware.ValidateOptions{
		MaxBodyBytes:        1 << 20,
		AllowedContentTypes: []string{"application/json"},
		Metrics:             gw.Metrics(),
	})

	r.Method(http.MethodPost, "/api/auth/login",
		middleware.Compose(loginLimit, jsonBody, cors)(http.HandlerFunc(s.handleLogin)))

	r.Method(http.MethodPost, "/api/auth/logout",
		middleware.Compose(limit, cors)(http.HandlerFunc(s.handleLogout)))

	if s.cfg.Registrar != nil {
		r.Method(http.MethodPost, "/api/auth/register",
			middleware.Compose(
				middleware.RequireGuest(gw), loginLimit, jsonBody, cors,
			)(http.HandlerFunc(s.handleRegister)))
	}

	r.Method(http.MethodGet, "/api/profile",
		middleware.Compose(
			middleware.RequireAuth(gw), limit, cors,
		)(http.HandlerFunc(s.handleProfile)))

	r.Method(http.MethodGet, "/api/admin/overview",
		middleware.Compose(
			middleware.RequireRoles(gw, "admin"), limit, cors,
		)(http.HandlerFunc(s.handleAdminOverview)))

	r.Method(http.MethodGet, "/api/products",
		middleware.Compose(
			middleware.OptionalAuth(gw), limit, cors,
		)(http.HandlerFunc(s.handleProducts)))

	// Routes register only their real verbs, so preflights land in the
	// method-not-allowed handler; answer them there, everything else gets a
	// 405 envelope with the route's supported verbs in Allow.
	preflight := cors(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			preflight.ServeHTTP(w, req)
			return
		}
		if allow := allowedMethods(r, req.URL.Path); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		shopgate.WriteError(w, shopgate.ErrMethodNotAllowed)
	})

	exporter := prometheus.NewPrometheusExporter(gw)
	r.Method(http.MethodGet, "/metrics", exporter.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shopgate.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		shopgate.WriteError(w, shopgate.ErrNotFound)
	})

	return r
}

// allowedMethods probes the route table for the verbs registered on path.
func allowedMethods(routes chi.Routes, path string) []string {
	var allow []string
	for _, m := range []string{
		http.MethodGet, http.MethodHead, http.MethodPost,
		http.MethodPut, http.MethodPatch, http.MethodDelete,
	} {
		rctx := chi.NewRouteContext()
		if routes.Match(rctx, m, path) {
			allow = append(allow, m)
		}
	}
	return allow
}
