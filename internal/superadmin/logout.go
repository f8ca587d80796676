package superadmin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/audit"
	httpmiddleware "github.com/wolfeidau/tradejournal/internal/http"
	"github.com/wolfeidau/tradejournal/internal/models"
)

// LogoutHandler ends the session if any, clears the cookie and records a LOGOUT entry.
// It always responds 200: a client asking to log out is never told it failed.
func (h *Handler) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, userAgent := httpmiddleware.RequestMeta(r)

		ended := h.sessions.End(w, r)

		var actor *uuid.UUID
		if ended != nil {
			actor = &ended.UserID
		}

		h.record(r, audit.Event{
			Action:    models.AuditActionLogout,
			Category:  models.AuditCategoryAuth,
			Detail:    logoutDetail,
			IPAddress: ip,
			UserAgent: userAgent,
			Success:   h.cfg.LogoutPolicy.Success(ended != nil),
			ActorID:   actor,
		})
		if h.metrics != nil {
			h.metrics.LogoutsTotal.Add(r.Context(), 1)
		}

		log.Info().Str("ip", ip).Bool("had_session", ended != nil).Msg("Superadmin logged out")

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
