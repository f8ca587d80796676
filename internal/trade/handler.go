package trade

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

const maxTradeBody = 16 << 10

// ValidateHandler checks a submitted trade without storing it.
// Responds 200 {"valid":true} or 422 {"valid":false,"errors":{field:message}}.
func ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t Trade
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTradeBody)).Decode(&t); err != nil {
			log.Debug().Err(err).Msg("Malformed trade")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
			return
		}

		if err := t.Validate(); err != nil {
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
				return
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "errors": verrs})
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
