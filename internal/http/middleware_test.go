package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP_xForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "single IP",
			header:   "192.168.1.1",
			expected: "192.168.1.1",
		},
		{
			name:     "multiple IPs (take first)",
			header:   "1.2.3.4, 5.6.7.8",
			expected: "1.2.3.4",
		},
		{
			name:     "multiple IPs no spaces",
			header:   "203.0.113.1,198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs with extra spaces",
			header:   "  203.0.113.1  ,  198.51.100.1",
			expected: "203.0.113.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-For", tt.header)

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestExtractClientIP_xRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "9.9.9.9")

	ip := ExtractClientIP(r)
	require.Equal(t, "9.9.9.9", ip)
}

func TestExtractClientIP_xForwardedForTakesPreference(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")
	r.Header.Set("X-Real-IP", "192.168.1.100")

	ip := ExtractClientIP(r)
	require.Equal(t, "203.0.113.1", ip)
}

func TestExtractClientIP_emptyForwardedForFallsBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", " , 198.51.100.1")
	r.Header.Set("X-Real-IP", "9.9.9.9")

	require.Equal(t, "9.9.9.9", ExtractClientIP(r))
}

func TestExtractClientIP_unknown(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.1:54321"

	// RemoteAddr is deliberately ignored
	require.Equal(t, "unknown", ExtractClientIP(r))
}

func TestExtractUserAgent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "unknown", ExtractUserAgent(r))

	r.Header.Set("User-Agent", "journal-cli/1.0")
	require.Equal(t, "journal-cli/1.0", ExtractUserAgent(r))
}

func TestClientIPMiddleware(t *testing.T) {
	var gotIP, gotUA string
	handler := ClientIPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIPFromContext(r.Context())
		gotUA = UserAgentFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/superadmin/logout", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	r.Header.Set("User-Agent", "Mozilla/5.0")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "1.2.3.4", gotIP)
	require.Equal(t, "Mozilla/5.0", gotUA)
}

func TestClientIPFromContext_notSet(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "unknown", ClientIPFromContext(r.Context()))
	require.Equal(t, "unknown", UserAgentFromContext(r.Context()))
}

func TestRequestMeta(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", " 10.0.0.7 ")

	ip, ua := RequestMeta(r)
	require.Equal(t, "10.0.0.7", ip)
	require.Equal(t, "unknown", ua)

	var gotIP, gotUA string
	ClientIPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// headers changed after the middleware ran are ignored
		r.Header.Set("X-Real-IP", "10.9.9.9")
		gotIP, gotUA = RequestMeta(r)
	})).ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "10.0.0.7", gotIP)
	require.Equal(t, "unknown", gotUA)
}
