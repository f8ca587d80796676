package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/store/memory"
	"github.com/wolfeidau/tradejournal/internal/superadmin"
	"github.com/wolfeidau/tradejournal/internal/totp"
	"golang.org/x/crypto/bcrypt"
)

const trustedOrigin = "https://journal.example.com"

func newTestStores() *store.Stores {
	return &store.Stores{
		Users:    memory.NewUserStore(),
		Sessions: memory.NewSessionStore(),
		Audit:    memory.NewAuditStore(),
	}
}

func newTestConfig(t *testing.T) Config {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	return Config{
		Superadmin: superadmin.Config{
			Email:            "admin@tradejournal.test",
			PasswordHash:     hash,
			TOTPSetupEnabled: true,
		},
		SessionSecret: []byte("server-test-session-secret-0123456789"),
		TOTPProvider:  totp.NewStaticProvider("JBSWY3DPEHPK3PXP"),
		CORSOrigins:   []string{trustedOrigin},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv, err := NewServer(newTestConfig(t), newTestStores(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", string(body))
	require.NotEmpty(t, res.Header.Get("X-Request-Id"))
}

func TestTradeValidateRoute(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "valid",
			body:   `{"symbol":"AAPL","side":"long","entryPrice":"150.25","quantity":"10","entryDate":"2024-03-01T14:30:00Z"}`,
			status: http.StatusOK,
		},
		{
			name:   "invalid",
			body:   `{"symbol":"","side":"sideways","entryPrice":"0","quantity":"0","entryDate":"2024-03-01T14:30:00Z"}`,
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Post(ts.URL+"/api/trades/validate", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer res.Body.Close()
			require.Equal(t, tt.status, res.StatusCode)
		})
	}
}

func TestLogoutRouteWithoutSession(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/api/superadmin/logout", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Set-Cookie"), "sa_session=;")
}

func TestCrossOriginProtection(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name        string
		origin      string
		status      int
		allowOrigin string
	}{
		{name: "untrusted origin", origin: "https://evil.example.net", status: http.StatusForbidden},
		{name: "trusted origin", origin: trustedOrigin, status: http.StatusOK, allowOrigin: trustedOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/superadmin/logout", nil)
			require.NoError(t, err)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Sec-Fetch-Site", "cross-site")

			res, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer res.Body.Close()

			require.Equal(t, tt.status, res.StatusCode)
			require.Equal(t, tt.allowOrigin, res.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/superadmin/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", trustedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, trustedOrigin, res.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
}

func TestNewServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config, *store.Stores)
	}{
		{name: "missing audit store", modify: func(_ *Config, s *store.Stores) { s.Audit = nil }},
		{name: "missing totp provider", modify: func(c *Config, _ *store.Stores) { c.TOTPProvider = nil }},
		{name: "short session secret", modify: func(c *Config, _ *store.Stores) { c.SessionSecret = []byte("short") }},
		{name: "missing email", modify: func(c *Config, _ *store.Stores) { c.Superadmin.Email = "" }},
		{name: "bad logout policy", modify: func(c *Config, _ *store.Stores) { c.Superadmin.LogoutPolicy = "sometimes" }},
		{name: "origin with path", modify: func(c *Config, _ *store.Stores) { c.CORSOrigins = []string{"https://journal.example.com/app"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			stores := newTestStores()
			tt.modify(&cfg, stores)

			_, err := NewServer(cfg, stores, nil)
			require.Error(t, err)
		})
	}
}
