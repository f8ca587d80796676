package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/tradejournal/internal/audit"
	"github.com/wolfeidau/tradejournal/internal/logger"
	"github.com/wolfeidau/tradejournal/internal/server"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/superadmin"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TRADEJOURNAL_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TRADEJOURNAL_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TRADEJOURNAL_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"origins allowed to call the API with credentials" env:"TRADEJOURNAL_CORS_ORIGINS"`

	// Superadmin configuration
	Production        bool          `help:"production mode: session cookies are marked Secure" default:"false" env:"TRADEJOURNAL_PRODUCTION"`
	SuperadminEmail   string        `help:"superadmin login email" env:"TRADEJOURNAL_SUPERADMIN_EMAIL"`
	PasswordHash      string        `help:"bcrypt hash of the superadmin password (see hash-password)" env:"TRADEJOURNAL_SUPERADMIN_PASSWORD_HASH"`
	SessionSecret     string        `help:"HMAC secret for session tokens, at least 32 bytes" env:"TRADEJOURNAL_SESSION_SECRET"`
	SessionTTL        time.Duration `help:"session TTL" default:"12h" env:"TRADEJOURNAL_SESSION_TTL"`
	SessionSweep      time.Duration `help:"interval between expired session sweeps, 0 disables" default:"15m" env:"TRADEJOURNAL_SESSION_SWEEP"`
	TOTPSetupEnabled  bool          `help:"serve GET /api/superadmin/totp-setup; disable once enrolled" default:"true" negatable:"" env:"TRADEJOURNAL_TOTP_SETUP_ENABLED"`
	LogoutAuditPolicy string        `help:"how logout audit entries report success (always-success or reflect-session)" default:"always-success" env:"TRADEJOURNAL_LOGOUT_AUDIT_POLICY" enum:"always-success,reflect-session"`

	// Audit configuration
	AuditTimeout  time.Duration `help:"timeout for writing an audit entry" default:"5s" env:"TRADEJOURNAL_AUDIT_TIMEOUT"`
	AuditMaxTries uint          `help:"attempts per audit entry" default:"3" env:"TRADEJOURNAL_AUDIT_MAX_TRIES"`

	Telemetry bool `help:"export OpenTelemetry metrics over OTLP" default:"false" env:"TRADEJOURNAL_TELEMETRY"`

	TOTP   TOTPFlags  `embed:"" prefix:"totp-"`
	Stores StoreFlags `embed:""`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if err := c.TOTP.Validate(); err != nil {
		return err
	}

	// Setup telemetry if enabled
	var metrics *telemetry.Metrics
	if c.Telemetry {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "tradejournal-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		metrics = telemetry.GetMetrics()
	}

	stores, err := c.Stores.openStores(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close stores")
		}
	}()

	provider, err := c.TOTP.provider(ctx)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		Superadmin: superadmin.Config{
			Email:            c.SuperadminEmail,
			PasswordHash:     []byte(c.PasswordHash),
			TOTPSetupEnabled: c.TOTPSetupEnabled,
			LogoutPolicy:     audit.LogoutPolicy(c.LogoutAuditPolicy),
			AuditTimeout:     c.AuditTimeout,
		},
		SessionSecret: []byte(c.SessionSecret),
		SessionTTL:    c.SessionTTL,
		Secure:        c.Production,
		TOTPProvider:  provider,
		TOTP:          c.TOTP.config(),
		Audit:         audit.Config{MaxTries: c.AuditMaxTries},
		CORSOrigins:   c.CORSOrigins,
	}, stores, metrics)
	if err != nil {
		return err
	}

	if !c.Production {
		log.Warn().Msg("Production mode is off, session cookies are not marked Secure")
	}
	if c.TOTPSetupEnabled {
		log.Warn().Msg("TOTP setup endpoint is enabled, disable it once the superadmin has enrolled")
	}

	tls := c.Cert != "" || c.Key != ""
	if tls {
		if err := checkTLSFiles(c.Cert, c.Key); err != nil {
			return err
		}
	}

	httpServer := configureHTTPServer(c.Listen, srv.Handler(log))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", c.Listen).Bool("tls", tls).Msg("Starting HTTP server")

		var err error
		if tls {
			err = httpServer.ListenAndServeTLS(c.Cert, c.Key)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if c.SessionSweep > 0 {
		g.Go(func() error {
			sweepSessions(gctx, log, stores.Sessions, c.SessionSweep)
			return nil
		})
	}

	return g.Wait()
}

// sweepSessions removes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, log zerolog.Logger, sessions store.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to delete expired sessions")
				continue
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("Deleted expired sessions")
			}
		}
	}
}

func checkTLSFiles(cert, key string) error {
	if cert == "" || key == "" {
		return errors.New("both TLS certificate and key are required (--cert and --key)")
	}
	if _, err := os.Stat(cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", cert, err)
	}
	if _, err := os.Stat(key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", key, err)
	}
	return nil
}
