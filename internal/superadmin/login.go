package superadmin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/audit"
	httpmiddleware "github.com/wolfeidau/tradejournal/internal/http"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
	"golang.org/x/crypto/bcrypt"
)

const maxLoginBody = 4 << 10

// LoginRequest is the body of POST /api/superadmin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// LoginHandler verifies email, password and TOTP code, then starts a session.
func (h *Handler) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip, userAgent := httpmiddleware.RequestMeta(r)

		var req LoginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
			log.Debug().Err(err).Msg("Malformed login request")
			writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}

		ok, err := h.checkCredentials(ctx, req)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check superadmin credentials")
			h.loginFailed(w, r, ip, userAgent, http.StatusInternalServerError, msgInternal)
			return
		}
		if !ok {
			log.Warn().Str("ip", ip).Msg("Superadmin login rejected")
			h.loginFailed(w, r, ip, userAgent, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		user, err := h.ensureUser(ctx, h.cfg.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load superadmin user")
			h.loginFailed(w, r, ip, userAgent, http.StatusInternalServerError, msgInternal)
			return
		}

		sess, err := h.sessions.Start(ctx, w, user.ID, userAgent, ip)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start superadmin session")
			h.loginFailed(w, r, ip, userAgent, http.StatusInternalServerError, msgInternal)
			return
		}

		h.record(r, audit.Event{
			Action:    models.AuditActionLogin,
			Category:  models.AuditCategoryAuth,
			Detail:    "Superadmin logged in",
			IPAddress: ip,
			UserAgent: userAgent,
			Success:   true,
			ActorID:   &user.ID,
		})
		if h.metrics != nil {
			telemetry.RecordOutcome(ctx, h.metrics.LoginsTotal, true)
		}

		log.Info().
			Str("user_id", user.ID.String()).
			Str("session_id", sess.SessionID.String()).
			Str("ip", ip).
			Msg("Superadmin logged in")

		writeJSON(w, http.StatusOK, LoginResponse{Success: true, User: user})
	}
}

// checkCredentials runs every check regardless of earlier failures so response time does not reveal which one failed.
func (h *Handler) checkCredentials(ctx context.Context, req LoginRequest) (bool, error) {
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(req.Email))),
		[]byte(strings.ToLower(strings.TrimSpace(h.cfg.Email))),
	) == 1

	passwordOK := bcrypt.CompareHashAndPassword(h.cfg.PasswordHash, []byte(req.Password)) == nil

	codeOK, err := h.totp.Validate(ctx, req.Code)
	if err != nil {
		return false, fmt.Errorf("failed to validate TOTP code: %w", err)
	}

	return emailOK && passwordOK && codeOK, nil
}

func (h *Handler) ensureUser(ctx context.Context, email string) (*models.User, error) {
	user, err := h.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	user, err = models.NewUser(email, nil)
	if err != nil {
		return nil, err
	}

	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			// created by a concurrent login
			return h.users.GetByEmail(ctx, email)
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("Created superadmin user")

	return user, nil
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, ip, userAgent string, status int, message string) {
	h.record(r, audit.Event{
		Action:    models.AuditActionLogin,
		Category:  models.AuditCategoryAuth,
		Detail:    "Superadmin login failed",
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   false,
	})
	if h.metrics != nil {
		telemetry.RecordOutcome(r.Context(), h.metrics.LoginsTotal, false)
	}
	writeError(w, status, message)
}
