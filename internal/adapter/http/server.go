package adapthttp

import (
	"net/http"

	"bookstore/internal/app"
	"bookstore/internal/metrics"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on wiring. Verifier and OAuth2Config are
// only consulted when Enabled is true.
type OIDCConfig struct {
	Enabled      bool
	Verifier     *oidc.IDTokenVerifier
	OAuth2Config oauth2.Config
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	catalog *app.CatalogService
	authSvc *app.AuthService
	profile *app.ProfileService
	logger  *zap.Logger
	metrics *metrics.Metrics
	limiter *rateLimiter
	webDir  string

	oidcConfig  OIDCConfig
	corsOrigins map[string]bool
	forwardAuth bool
}

// New creates a Server wired to the given application services.
func New(cs *app.CatalogService, as *app.AuthService, ps *app.ProfileService, logger *zap.Logger, webDir string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		catalog:     cs,
		authSvc:     as,
		profile:     ps,
		logger:      logger,
		webDir:      webDir,
		corsOrigins: map[string]bool{},
	}
}

// WithMetrics enables request instrumentation and the /metrics endpoint.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

// WithOIDC enables the SSO login and callback endpoints.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithCORS allows cross-origin requests from the listed origins.
func (s *Server) WithCORS(origins []string) *Server {
	for _, o := range origins {
		s.corsOrigins[o] = true
	}
	return s
}

// WithLoginRate limits login and registration attempts per client.
func (s *Server) WithLoginRate(perSecond float64, burst int) *Server {
	s.limiter = newRateLimiter(perSecond, burst)
	return s
}

// WithForwardAuth trusts the Remote-User header set by an auth proxy.
func (s *Server) WithForwardAuth() *Server {
	s.forwardAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "OK", "message": "Bookstore API is running"})
	})

	api.HandleFunc("GET /books", s.handleListBooks)
	api.HandleFunc("GET /books/{id}", s.handleGetBook)
	api.HandleFunc("GET /books/search", s.handleSearchBooks)
	api.HandleFunc("GET /search", s.handleSearchBooks)
	api.HandleFunc("GET /books/bestsellers", s.handleBestsellers)
	api.HandleFunc("GET /books/author/{id}", s.handleBooksByAuthor)
	api.HandleFunc("GET /books/genre/{id}", s.handleBooksByGenre)
	api.HandleFunc("GET /books/format/{format}", s.handleBooksByFormat)

	api.HandleFunc("GET /authors", s.handleListAuthors)
	api.HandleFunc("GET /authors/{id}", s.handleGetAuthor)
	api.HandleFunc("GET /genres", s.handleListGenres)
	api.HandleFunc("GET /genres/{id}", s.handleGetGenre)

	api.Handle("GET /profile", s.authMiddleware(http.HandlerFunc(s.handleGetProfile)))
	api.Handle("PUT /profile", s.authMiddleware(http.HandlerFunc(s.handleUpdateProfile)))
	api.Handle("POST /profile/change-password", s.authMiddleware(http.HandlerFunc(s.handleChangePassword)))

	auth := http.NewServeMux()
	auth.Handle("POST /login", s.rateLimit(http.HandlerFunc(s.handleLogin)))
	auth.Handle("POST /register", s.rateLimit(http.HandlerFunc(s.handleRegister)))
	auth.HandleFunc("POST /refresh", s.handleRefresh)
	auth.HandleFunc("POST /logout", s.handleLogout)
	auth.HandleFunc("GET /config", s.handleConfig)
	auth.HandleFunc("GET /sso/login", s.handleSSOLogin)
	auth.HandleFunc("GET /sso/callback", s.handleSSOCallback)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/auth/", http.StripPrefix("/auth", auth))
	if s.metrics != nil {
		root.Handle("GET /metrics", s.metrics.Handler())
	}
	root.Handle("/", spaFromDisk(s.webDir))

	var h http.Handler = withNoCache(root)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	if s.metrics != nil {
		h = s.metrics.InstrumentHandler(h)
	}
	return h
}
