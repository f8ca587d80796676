package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tradejournal/internal/audit"
	httpmiddleware "github.com/wolfeidau/tradejournal/internal/http"
	"github.com/wolfeidau/tradejournal/internal/logger"
	"github.com/wolfeidau/tradejournal/internal/session"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/superadmin"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
	"github.com/wolfeidau/tradejournal/internal/totp"
	"github.com/wolfeidau/tradejournal/internal/trade"
)

// DefaultSessionTTL bounds a superadmin session.
const DefaultSessionTTL = 12 * time.Hour

// Config wires the superadmin API.
type Config struct {
	Superadmin    superadmin.Config
	SessionSecret []byte
	SessionTTL    time.Duration
	// Secure sets the Secure attribute on the session cookie.
	Secure       bool
	TOTPProvider totp.SecretProvider
	TOTP         totp.Config
	Audit        audit.Config
	// CORSOrigins may call /api/ with credentials. They are also trusted by cross-origin protection.
	CORSOrigins []string
}

// Server holds the handlers backing the HTTP API
type Server struct {
	superadmin  *superadmin.Handler
	protect     func(http.Handler) http.Handler
	corsOrigins []string
}

// NewServer creates the API server over the given stores. metrics may be nil.
func NewServer(cfg Config, stores *store.Stores, metrics *telemetry.Metrics) (*Server, error) {
	if stores == nil || stores.Users == nil || stores.Sessions == nil || stores.Audit == nil {
		return nil, errors.New("server: users, sessions and audit stores are required")
	}
	if cfg.TOTPProvider == nil {
		return nil, errors.New("server: totp secret provider is required")
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	tokens, err := session.NewTokens(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	sessions, err := session.NewManager(stores.Sessions, tokens, session.CookieManager{Secure: cfg.Secure}, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	admin, err := superadmin.NewHandler(
		cfg.Superadmin,
		stores.Users,
		sessions,
		totp.NewService(cfg.TOTPProvider, cfg.TOTP),
		audit.NewLogger(stores.Audit, cfg.Audit, metrics),
		metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	protection := csrf.New()
	for _, origin := range cfg.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("server: invalid origin %q: %w", origin, err)
		}
	}

	return &Server{
		superadmin:  admin,
		protect:     protection.Handler,
		corsOrigins: cfg.CORSOrigins,
	}, nil
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.superadmin.Register(mux)
	mux.Handle("POST /api/trades/validate", trade.ValidateHandler())

	protected := s.protect(mux)
	api := withCORS(s.corsOrigins, protected)

	// Route API calls through CORS; everything else only needs cross-origin protection
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			api.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	handler = gzhttp.GzipHandler(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	return logger.Requests(log)(handler)
}

func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS allows credentialed requests from the configured origins.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true, // session cookie
	})
	return middleware.Handler(h)
}
