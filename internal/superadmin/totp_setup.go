package superadmin

import (
	"net/http"

	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/tradejournal/internal/http"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
)

// TOTPSetupHandler returns the enrollment secret, otpauth URI and QR code.
// Any failure yields the same generic 500; the cause is only logged.
// Nothing is persisted, repeated calls return the same enrollment.
func (h *Handler) TOTPSetupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.TOTPSetupEnabled {
			http.NotFound(w, r)
			return
		}

		ctx := r.Context()
		ip, userAgent := httpmiddleware.RequestMeta(r)

		enrollment, err := h.totp.Enroll(ctx)
		if h.metrics != nil {
			telemetry.RecordOutcome(ctx, h.metrics.TOTPSetupsTotal, err == nil)
		}

		if err != nil {
			log.Error().Err(err).Str("ip", ip).Str("user_agent", userAgent).Msg("Failed to generate TOTP setup")
			writeError(w, http.StatusInternalServerError, msgTOTPSetupFailed)
			return
		}

		log.Info().Str("ip", ip).Str("user_agent", userAgent).Msg("TOTP enrollment served")
		writeJSON(w, http.StatusOK, enrollment)
	}
}
