// Package superadmin serves the superadmin authentication API: login, logout,
// TOTP enrollment, the current user and the audit log.
package superadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/audit"
	"github.com/wolfeidau/tradejournal/internal/session"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
	"github.com/wolfeidau/tradejournal/internal/totp"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidRequest     = "Invalid request"
	msgInternal           = "Internal server error"
	msgTOTPSetupFailed    = "Failed to generate TOTP setup"

	logoutDetail = "Superadmin logged out"
)

// Config holds the superadmin identity and behaviour switches.
type Config struct {
	// Email is the only address allowed to log in. Compared case-insensitively.
	Email string

	// PasswordHash is a bcrypt hash of the superadmin password.
	PasswordHash []byte

	// TOTPSetupEnabled serves the enrollment endpoint. Disable once the authenticator is set up.
	TOTPSetupEnabled bool

	// LogoutPolicy decides the success flag recorded for logouts.
	LogoutPolicy audit.LogoutPolicy

	// AuditTimeout bounds each audit write, including retries. Default: 5s
	AuditTimeout time.Duration
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("superadmin email is required")
	}
	if len(c.PasswordHash) == 0 {
		return fmt.Errorf("superadmin password hash is required")
	}
	if _, err := audit.ParseLogoutPolicy(string(c.LogoutPolicy)); err != nil {
		return err
	}
	return nil
}

// Handler serves the superadmin API.
type Handler struct {
	cfg      Config
	users    store.UserStore
	sessions *session.Manager
	totp     *totp.Service
	audit    *audit.Logger
	metrics  *telemetry.Metrics
}

// NewHandler creates a superadmin API handler.
func NewHandler(cfg Config, users store.UserStore, sessions *session.Manager, totpService *totp.Service, auditLog *audit.Logger, metrics *telemetry.Metrics) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid superadmin config: %w", err)
	}

	if cfg.LogoutPolicy == "" {
		cfg.LogoutPolicy = audit.LogoutAlwaysSuccess
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = 5 * time.Second
	}

	return &Handler{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		totp:     totpService,
		audit:    auditLog,
		metrics:  metrics,
	}, nil
}

// Register adds the superadmin routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	requireSession := h.sessions.RequireSession(session.Unauthorized, h.onReject)

	mux.Handle("POST /api/superadmin/login", h.LoginHandler())
	mux.Handle("POST /api/superadmin/logout", h.LogoutHandler())
	mux.Handle("GET /api/superadmin/totp-setup", h.TOTPSetupHandler())
	mux.Handle("GET /api/superadmin/me", requireSession(h.MeHandler()))
	mux.Handle("GET /api/superadmin/audit", requireSession(h.AuditListHandler()))
	mux.Handle("GET /api/superadmin/audit/verify", requireSession(h.AuditVerifyHandler()))
}

func (h *Handler) onReject(r *http.Request, reason string) {
	if h.metrics != nil {
		telemetry.RecordReason(r.Context(), h.metrics.SessionRejections, reason)
	}
}

// record writes an audit entry. The write outlives a cancelled request so the log stays complete.
func (h *Handler) record(r *http.Request, ev audit.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.AuditTimeout)
	defer cancel()

	// failures are logged and counted by the audit logger
	_, _ = h.audit.Record(ctx, ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
