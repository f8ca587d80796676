package http

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	clientIPContextKey  contextKey = "client_ip"
	userAgentContextKey contextKey = "user_agent"
)

// Unknown is recorded when a request carries no usable client metadata.
const Unknown = "unknown"

// ExtractClientIP extracts the client IP address from the request headers.
// The left-most X-Forwarded-For entry wins, then X-Real-IP, otherwise "unknown".
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return Unknown
}

// ExtractUserAgent returns the User-Agent header or "unknown".
func ExtractUserAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return Unknown
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, ok := ctx.Value(clientIPContextKey).(string)
	if !ok {
		return Unknown
	}
	return ip
}

// UserAgentFromContext extracts the user agent from the request context.
func UserAgentFromContext(ctx context.Context) string {
	ua, ok := ctx.Value(userAgentContextKey).(string)
	if !ok {
		return Unknown
	}
	return ua
}

// RequestMeta returns the client IP and user agent recorded by ClientIPMiddleware,
// extracting them from the request when the middleware did not run.
func RequestMeta(r *http.Request) (ip, userAgent string) {
	ip, ok := r.Context().Value(clientIPContextKey).(string)
	if !ok {
		ip = ExtractClientIP(r)
	}
	userAgent, ok = r.Context().Value(userAgentContextKey).(string)
	if !ok {
		userAgent = ExtractUserAgent(r)
	}
	return ip, userAgent
}

// ClientIPMiddleware extracts the client IP and user agent and stores them in the request context
// so session creation and audit logging see the same values.
func ClientIPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPContextKey, ExtractClientIP(r))
			ctx = context.WithValue(ctx, userAgentContextKey, ExtractUserAgent(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
