package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// FailureHandler responds to a request that carries no valid session.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Unauthorized responds with 401 and a JSON error body. Used for API routes.
func Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// RedirectTo redirects to loginPath with an error_code query parameter. Used for page routes.
func RedirectTo(loginPath string) FailureHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		http.Redirect(w, r, loginPath+"?error_code="+ErrorCode(err), http.StatusFound)
	}
}

// ErrorCode maps a validation error to a short reason used in redirects and metrics.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoSession):
		return "missing"
	case errors.Is(err, ErrExpiredSession):
		return "expired"
	default:
		return "invalid"
	}
}

// RequireSession is a middleware that protects routes by requiring a valid session.
// On success the session is added to the request context.
func (m *Manager) RequireSession(onFail FailureHandler, onReject func(r *http.Request, reason string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := m.Validate(r)
			if err != nil {
				reason := ErrorCode(err)
				log.Debug().Str("path", r.URL.Path).Str("reason", reason).Msg("Session rejected")
				if onReject != nil {
					onReject(r, reason)
				}
				onFail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
