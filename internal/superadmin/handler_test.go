package superadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tradejournal/internal/audit"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/session"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/store/memory"
	"github.com/wolfeidau/tradejournal/internal/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "admin@tradejournal.test"
	testPassword = "correct horse battery staple"
	testSecret   = "JBSWY3DPEHPK3PXP"
)

var sessionSecret = []byte("superadmin-test-secret-32-bytes-long!")

type harness struct {
	mux      *http.ServeMux
	users    *memory.UserStore
	sessions *memory.SessionStore
	audits   store.AuditStore
}

type options struct {
	secure     bool
	configure  func(*Config)
	provider   totp.SecretProvider
	auditStore store.AuditStore
}

func newHarness(t *testing.T, opts options) *harness {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := Config{
		Email:            testEmail,
		PasswordHash:     hash,
		TOTPSetupEnabled: true,
	}
	if opts.configure != nil {
		opts.configure(&cfg)
	}

	if opts.provider == nil {
		opts.provider = totp.NewStaticProvider(testSecret)
	}
	if opts.auditStore == nil {
		opts.auditStore = memory.NewAuditStore()
	}

	tokens, err := session.NewTokens(sessionSecret)
	require.NoError(t, err)

	sessions := memory.NewSessionStore()
	manager, err := session.NewManager(sessions, tokens, session.CookieManager{Secure: opts.secure}, time.Hour)
	require.NoError(t, err)

	users := memory.NewUserStore()
	auditLog := audit.NewLogger(opts.auditStore, audit.Config{MaxTries: 1}, nil)

	h, err := NewHandler(cfg, users, manager, totp.NewService(opts.provider, totp.Config{}), auditLog, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	return &harness{mux: mux, users: users, sessions: sessions, audits: opts.auditStore}
}

func (hs *harness) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", "journal-test/1.0")
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	for _, c := range cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	hs.mux.ServeHTTP(rec, r)
	return rec
}

func validLogin(t *testing.T) LoginRequest {
	t.Helper()
	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)
	return LoginRequest{Email: testEmail, Password: testPassword, Code: code}
}

func (hs *harness) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := hs.do(t, http.MethodPost, "/api/superadmin/login", validLogin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func (hs *harness) auditEntries(t *testing.T) []*models.AuditEntry {
	t.Helper()
	entries, err := hs.audits.List(context.Background(), store.ListAuditOptions{})
	require.NoError(t, err)
	return entries
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(Config{}, nil, nil, nil, nil, nil)
	require.Error(t, err)

	_, err = NewHandler(Config{Email: "a@b.c", PasswordHash: []byte("x"), LogoutPolicy: "maybe"}, nil, nil, nil, nil, nil)
	require.ErrorContains(t, err, "unknown logout audit policy")
}

func TestLogin(t *testing.T) {
	hs := newHarness(t, options{})

	rec := hs.do(t, http.MethodPost, "/api/superadmin/login", validLogin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	require.Equal(t, testEmail, user["email"])
	require.Equal(t, "light", user["preferences"].(map[string]any)["theme"])

	setCookie := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, session.CookieName+"="))
	require.Contains(t, setCookie, "HttpOnly")
	require.Contains(t, setCookie, "SameSite=Strict")
	require.NotContains(t, setCookie, "Max-Age")

	entries := hs.auditEntries(t)
	require.Len(t, entries, 1)
	require.Equal(t, models.AuditActionLogin, entries[0].Action)
	require.True(t, entries[0].Success)
	require.NotNil(t, entries[0].ActorID)
	require.Equal(t, "203.0.113.7", entries[0].IPAddress)

	// a second login reuses the stored user
	hs.login(t)
	u, err := hs.users.GetByEmail(context.Background(), strings.ToUpper(testEmail))
	require.NoError(t, err)
	require.Equal(t, *entries[0].ActorID, u.ID)
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LoginRequest)
	}{
		{name: "wrong password", mutate: func(r *LoginRequest) { r.Password = "hunter2" }},
		{name: "wrong email", mutate: func(r *LoginRequest) { r.Email = "someone@else.test" }},
		{name: "wrong code", mutate: func(r *LoginRequest) { r.Code = "000000" }},
		{name: "malformed code", mutate: func(r *LoginRequest) { r.Code = "abc" }},
		{name: "empty", mutate: func(r *LoginRequest) { *r = LoginRequest{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := newHarness(t, options{})

			req := validLogin(t)
			tt.mutate(&req)

			rec := hs.do(t, http.MethodPost, "/api/superadmin/login", req, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, "Invalid credentials", decode(t, rec)["error"])
			require.Empty(t, rec.Header().Get("Set-Cookie"))

			entries := hs.auditEntries(t)
			require.Len(t, entries, 1)
			require.Equal(t, models.AuditActionLogin, entries[0].Action)
			require.False(t, entries[0].Success)
			require.Nil(t, entries[0].ActorID)
		})
	}
}

func TestLogin_MalformedJSON(t *testing.T) {
	hs := newHarness(t, options{})

	rec := hs.do(t, http.MethodPost, "/api/superadmin/login", "{not json", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, hs.auditEntries(t))
}

func TestLogout(t *testing.T) {
	for _, secure := range []bool{false, true} {
		name := "development"
		if secure {
			name = "production"
		}

		t.Run(name, func(t *testing.T) {
			hs := newHarness(t, options{secure: secure})
			cookies := hs.login(t)

			rec := hs.do(t, http.MethodPost, "/api/superadmin/logout", nil, cookies)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, map[string]any{"success": true}, decode(t, rec))

			cleared := rec.Result().Cookies()
			require.Len(t, cleared, 1)
			require.Equal(t, session.CookieName, cleared[0].Name)
			require.Empty(t, cleared[0].Value)
			require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
			require.Equal(t, secure, cleared[0].Secure)
			require.True(t, cleared[0].HttpOnly)
			require.Equal(t, http.SameSiteStrictMode, cleared[0].SameSite)
			require.Equal(t, "/", cleared[0].Path)

			entries := hs.auditEntries(t)
			require.Len(t, entries, 2)
			logout := entries[0]
			require.Equal(t, models.AuditActionLogout, logout.Action)
			require.Equal(t, models.AuditCategoryAuth, logout.Category)
			require.Equal(t, "Superadmin logged out", logout.Detail)
			require.Equal(t, "203.0.113.7", logout.IPAddress)
			require.Equal(t, "journal-test/1.0", logout.UserAgent)
			require.True(t, logout.Success)
			require.NotNil(t, logout.ActorID)

			// the old cookie no longer opens protected routes
			rec = hs.do(t, http.MethodGet, "/api/superadmin/me", nil, cookies)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	tests := []struct {
		policy  audit.LogoutPolicy
		success bool
	}{
		{policy: "", success: true},
		{policy: audit.LogoutAlwaysSuccess, success: true},
		{policy: audit.LogoutReflectSession, success: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			hs := newHarness(t, options{configure: func(c *Config) { c.LogoutPolicy = tt.policy }})

			rec := hs.do(t, http.MethodPost, "/api/superadmin/logout", nil, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

			entries := hs.auditEntries(t)
			require.Len(t, entries, 1)
			require.Equal(t, tt.success, entries[0].Success)
			require.Nil(t, entries[0].ActorID)
		})
	}
}

func TestLogout_ReflectSessionWithSession(t *testing.T) {
	hs := newHarness(t, options{configure: func(c *Config) { c.LogoutPolicy = audit.LogoutReflectSession }})
	cookies := hs.login(t)

	rec := hs.do(t, http.MethodPost, "/api/superadmin/logout", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, hs.auditEntries(t)[0].Success)
}

type brokenAuditStore struct{}

func (brokenAuditStore) Append(context.Context, *models.AuditEntry) error {
	return errors.New("disk full")
}
func (brokenAuditStore) Last(context.Context) (*models.AuditEntry, error) { return nil, nil }
func (brokenAuditStore) List(context.Context, store.ListAuditOptions) ([]*models.AuditEntry, error) {
	return nil, errors.New("disk full")
}
func (brokenAuditStore) Walk(context.Context, func(*models.AuditEntry) error) error {
	return errors.New("disk full")
}

func TestLogout_AuditFailureStillSucceeds(t *testing.T) {
	hs := newHarness(t, options{auditStore: brokenAuditStore{}})

	rec := hs.do(t, http.MethodPost, "/api/superadmin/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"success": true}, decode(t, rec))
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestTOTPSetup(t *testing.T) {
	hs := newHarness(t, options{provider: totp.NewStaticProvider("ABCDEFGH")})

	rec := hs.do(t, http.MethodGet, "/api/superadmin/totp-setup", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "ABCDEFGH", body["secret"])
	require.Contains(t, body["otpauthUrl"], "algorithm=SHA1&digits=6&period=30")
	require.Contains(t, body["otpauthUrl"], "TradeJournal:superadmin")
	require.True(t, strings.HasPrefix(body["qrCode"].(string), "data:image/png;base64,"))
	require.Greater(t, len(body["qrCode"].(string)), len("data:image/png;base64,"))

	require.Empty(t, hs.auditEntries(t))
}

func TestTOTPSetup_RepeatedCallsLeaveNoTrace(t *testing.T) {
	hs := newHarness(t, options{provider: totp.NewStaticProvider("ABCDEFGH")})

	var first map[string]any
	for i := range 3 {
		rec := hs.do(t, http.MethodGet, "/api/superadmin/totp-setup", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		if i == 0 {
			first = body
			continue
		}
		require.Equal(t, first["otpauthUrl"], body["otpauthUrl"])
	}

	require.Empty(t, hs.auditEntries(t))
}

func TestTOTPSetup_SecretUnavailable(t *testing.T) {
	hs := newHarness(t, options{provider: totp.NewStaticProvider("")})

	rec := hs.do(t, http.MethodGet, "/api/superadmin/totp-setup", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, map[string]any{"error": "Failed to generate TOTP setup"}, decode(t, rec))
	require.Empty(t, hs.auditEntries(t))
}

func TestTOTPSetup_Disabled(t *testing.T) {
	hs := newHarness(t, options{configure: func(c *Config) { c.TOTPSetupEnabled = false }})

	rec := hs.do(t, http.MethodGet, "/api/superadmin/totp-setup", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, hs.auditEntries(t))
}

func TestMe(t *testing.T) {
	hs := newHarness(t, options{})

	rec := hs.do(t, http.MethodGet, "/api/superadmin/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", decode(t, rec)["error"])

	cookies := hs.login(t)
	rec = hs.do(t, http.MethodGet, "/api/superadmin/me", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testEmail, decode(t, rec)["user"].(map[string]any)["email"])
}

func TestAuditEndpoints(t *testing.T) {
	hs := newHarness(t, options{})

	rec := hs.do(t, http.MethodGet, "/api/superadmin/audit", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := hs.login(t)
	hs.do(t, http.MethodPost, "/api/superadmin/logout", nil, nil)
	hs.do(t, http.MethodPost, "/api/superadmin/login", LoginRequest{Email: testEmail}, nil)

	rec = hs.do(t, http.MethodGet, "/api/superadmin/audit", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Entries, 3)
	require.Equal(t, models.AuditActionLogin, listed.Entries[0].Action)
	require.False(t, listed.Entries[0].Success)
	require.Equal(t, models.AuditActionLogout, listed.Entries[1].Action)

	rec = hs.do(t, http.MethodGet, "/api/superadmin/audit?action=LOGOUT&limit=10", nil, cookies)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Entries, 1)

	rec = hs.do(t, http.MethodGet, "/api/superadmin/audit?action=NOPE", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"entries":[]}`, rec.Body.String())

	rec = hs.do(t, http.MethodGet, "/api/superadmin/audit?limit=ten", nil, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/superadmin/audit/verify", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"valid": true, "count": float64(3)}, decode(t, rec))
}
