package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/server"
	"github.com/wolfeidau/tradejournal/internal/state"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/store/memory"
	"github.com/wolfeidau/tradejournal/internal/superadmin"
	"github.com/wolfeidau/tradejournal/internal/totp"
	"github.com/wolfeidau/tradejournal/internal/trade"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "admin@tradejournal.test"
	testPassword = "hunter2hunter2"
	testSecret   = "JBSWY3DPEHPK3PXP"
)

func newTestServer(t *testing.T, setupEnabled bool) *httptest.Server {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	srv, err := server.NewServer(server.Config{
		Superadmin: superadmin.Config{
			Email:            testEmail,
			PasswordHash:     hash,
			TOTPSetupEnabled: setupEnabled,
		},
		SessionSecret: []byte("client-test-session-secret-0123456789"),
		TOTPProvider:  totp.NewStaticProvider(testSecret),
	}, &store.Stores{
		Users:    memory.NewUserStore(),
		Sessions: memory.NewSessionStore(),
		Audit:    memory.NewAuditStore(),
	}, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, ts *httptest.Server, storage state.Storage) *Client {
	t.Helper()

	c, err := New(Config{ServerURL: ts.URL, Timeout: 5 * time.Second}, state.NewAuthStore(), WithStorage(storage))
	require.NoError(t, err)
	return c
}

func currentCode(t *testing.T) string {
	t.Helper()
	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)
	return code
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "http", url: "http://localhost:8080"},
		{name: "https with trailing slash", url: "https://journal.example.com/"},
		{name: "unsupported scheme", url: "ftp://journal.example.com", wantErr: true},
		{name: "unparseable", url: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{ServerURL: tt.url}, state.NewAuthStore())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	c := newTestClient(t, ts, storage)

	var seen []state.AuthState
	unsubscribe := c.Auth().Subscribe(func(s state.AuthState) { seen = append(seen, s) })
	defer unsubscribe()

	user, err := c.Login(ctx, testEmail, testPassword, currentCode(t))
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)

	st := c.Auth().State()
	require.True(t, st.Authenticated())
	require.False(t, st.Loading)
	require.Nil(t, st.Error)

	// loading, then user
	require.Len(t, seen, 2)
	require.True(t, seen[0].Loading)
	require.NotNil(t, seen[1].User)

	token, err := storage.Get(ctx, SessionKey)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// a second client sharing the storage resumes the session
	resumed := newTestClient(t, ts, storage)
	me, err := resumed.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, me.ID)
	require.True(t, resumed.Auth().State().Authenticated())

	require.NoError(t, c.Logout(ctx))
	require.Equal(t, state.AuthState{}, c.Auth().State())

	token, err = storage.Get(ctx, SessionKey)
	require.NoError(t, err)
	require.Empty(t, token)

	// the server side session is gone too
	_, err = resumed.Refresh(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, resumed.Auth().State().Authenticated())
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t, true)
	c := newTestClient(t, ts, state.NewMemoryStorage())

	_, err := c.Login(context.Background(), testEmail, "wrong password", currentCode(t))
	require.ErrorIs(t, err, ErrUnauthorized)

	st := c.Auth().State()
	require.False(t, st.Loading)
	require.Nil(t, st.User)
	require.NotNil(t, st.Error)
	require.Equal(t, "Invalid credentials", *st.Error)
}

func TestRefreshWithoutSession(t *testing.T) {
	ts := newTestServer(t, true)
	c := newTestClient(t, ts, state.NewMemoryStorage())

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, state.AuthState{}, c.Auth().State())
}

func TestLogoutWithoutSession(t *testing.T) {
	ts := newTestServer(t, true)
	c := newTestClient(t, ts, state.NewMemoryStorage())

	require.NoError(t, c.Logout(context.Background()))
	require.False(t, c.Auth().State().Authenticated())
}

func TestLogoutServerUnreachable(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	c := newTestClient(t, ts, storage)

	_, err := c.Login(ctx, testEmail, testPassword, currentCode(t))
	require.NoError(t, err)

	ts.Close()

	require.Error(t, c.Logout(ctx))
	require.Equal(t, state.AuthState{}, c.Auth().State())

	token, err := storage.Get(ctx, SessionKey)
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestTOTPSetup(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		c := newTestClient(t, newTestServer(t, true), state.NewMemoryStorage())

		enrollment, err := c.TOTPSetup(context.Background())
		require.NoError(t, err)
		require.Equal(t, testSecret, enrollment.Secret)
		require.Contains(t, enrollment.OTPAuthURL, "otpauth://totp/TradeJournal:superadmin?")
		require.Contains(t, enrollment.QRCode, "data:image/png;base64,")
	})

	t.Run("disabled", func(t *testing.T) {
		c := newTestClient(t, newTestServer(t, false), state.NewMemoryStorage())

		_, err := c.TOTPSetup(context.Background())
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAuditEntries(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	c := newTestClient(t, ts, state.NewMemoryStorage())

	_, err := c.AuditEntries(ctx, 10, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.TOTPSetup(ctx)
	require.NoError(t, err)
	_, err = c.Login(ctx, testEmail, "wrong-password-entirely", currentCode(t))
	require.Error(t, err)
	_, err = c.Login(ctx, testEmail, testPassword, currentCode(t))
	require.NoError(t, err)

	entries, err := c.AuditEntries(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.AuditActionLogin, entries[0].Action)
	require.True(t, entries[0].Success)
	require.False(t, entries[1].Success)

	entries, err = c.AuditEntries(ctx, 0, models.AuditActionLogout)
	require.NoError(t, err)
	require.Empty(t, entries)

	valid, count, err := c.VerifyAudit(ctx)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, 2, count)
}

func TestValidateTrade(t *testing.T) {
	ts := newTestServer(t, true)
	c := newTestClient(t, ts, state.NewMemoryStorage())
	ctx := context.Background()

	entry := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	exit := entry.Add(-time.Hour)

	fields, err := c.ValidateTrade(ctx, trade.Trade{
		Symbol:     "AAPL",
		Side:       trade.SideLong,
		EntryPrice: decimal.RequireFromString("150.25"),
		Quantity:   decimal.NewFromInt(10),
		EntryDate:  entry,
	})
	require.NoError(t, err)
	require.Nil(t, fields)

	fields, err = c.ValidateTrade(ctx, trade.Trade{
		Symbol:     "AAPL",
		Side:       "sideways",
		EntryPrice: decimal.RequireFromString("150.25"),
		Quantity:   decimal.NewFromInt(10),
		EntryDate:  entry,
		ExitDate:   &exit,
	})
	require.NoError(t, err)
	require.Contains(t, fields, "side")
	require.Contains(t, fields, "exitDate")
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		target  error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Invalid credentials"}`, message: "Invalid credentials", target: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, body: `404 page not found`, message: "Not Found", target: ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"Failed to generate TOTP setup"}`, message: "Failed to generate TOTP setup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))
			require.Equal(t, tt.message, errorMessage(err))
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
		})
	}
}
