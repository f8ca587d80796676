package superadmin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/audit"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/session"
	"github.com/wolfeidau/tradejournal/internal/store"
)

// MeHandler returns the user owning the current session.
func (h *Handler) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := h.users.Get(r.Context(), sess.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", sess.UserID.String()).Msg("Failed to get session user")
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	}
}

// AuditListHandler returns recent audit entries, newest first.
// Query parameters: limit (default 100, max 1000) and action.
func (h *Handler) AuditListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListAuditOptions{Action: r.URL.Query().Get("action")}

		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, msgInvalidRequest)
				return
			}
			opts.Limit = limit
		}

		entries, err := h.audit.List(r.Context(), opts)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit entries")
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		if entries == nil {
			entries = []*models.AuditEntry{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}

// AuditVerifyHandler checks the audit hash chain end to end.
func (h *Handler) AuditVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := h.audit.Verify(r.Context())
		switch {
		case errors.Is(err, audit.ErrChainBroken):
			log.Error().Err(err).Int("verified", count).Msg("Audit chain verification failed")
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "count": count})
			return
		case err != nil:
			log.Error().Err(err).Msg("Failed to read audit log")
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "count": count})
	}
}
