// Package client is the Go SDK for the superadmin API. It keeps an AuthStore in step with the
// server and persists the session cookie through a state.Storage so a CLI can resume between runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/session"
	"github.com/wolfeidau/tradejournal/internal/state"
	"github.com/wolfeidau/tradejournal/internal/totp"
	"github.com/wolfeidau/tradejournal/internal/trade"
)

// SessionKey is the storage key holding the session token.
const SessionKey = "trade-journal-session"

var (
	// ErrUnauthorized is returned when the server rejects the credentials or session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when an endpoint is disabled or missing.
	ErrNotFound = errors.New("not found")
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}

// Client calls the superadmin API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	auth    *state.AuthStore
	storage state.Storage
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithStorage persists the session token across processes.
func WithStorage(s state.Storage) Option {
	return func(c *Client) { c.storage = s }
}

// New creates a client that reports auth transitions to auth.
func New(cfg Config, auth *state.AuthStore, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", cfg.ServerURL)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		auth:    auth,
		storage: state.NewMemoryStorage(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Auth returns the store this client updates.
func (c *Client) Auth() *state.AuthStore {
	return c.auth
}

// Login authenticates with password and TOTP code. On success the user is stored in the AuthStore.
func (c *Client) Login(ctx context.Context, email, password, code string) (*models.User, error) {
	c.auth.SetLoading(true)

	var resp struct {
		Success bool         `json:"success"`
		User    *models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/superadmin/login", map[string]string{
		"email":    email,
		"password": password,
		"code":     code,
	}, &resp)
	if err != nil {
		c.auth.SetError(errorMessage(err))
		return nil, err
	}

	c.auth.SetUser(resp.User)
	return resp.User, nil
}

// Refresh asks the server who owns the current session. A rejected session resets the AuthStore
// so guards observe the unauthenticated state.
func (c *Client) Refresh(ctx context.Context) (*models.User, error) {
	c.auth.SetLoading(true)

	var resp struct {
		User *models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/superadmin/me", nil, &resp)
	switch {
	case errors.Is(err, ErrUnauthorized):
		c.forgetSession(ctx)
		c.auth.Reset()
		return nil, err
	case err != nil:
		c.auth.SetError(errorMessage(err))
		return nil, err
	}

	c.auth.SetUser(resp.User)
	return resp.User, nil
}

// Logout ends the session. Local state is cleared even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/superadmin/logout", nil, nil)

	c.forgetSession(ctx)
	c.auth.Reset()

	return err
}

// TOTPSetup fetches the enrollment secret, provisioning URI and QR code.
func (c *Client) TOTPSetup(ctx context.Context) (*totp.Enrollment, error) {
	var enrollment totp.Enrollment
	if err := c.do(ctx, http.MethodGet, "/api/superadmin/totp-setup", nil, &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// AuditEntries lists audit entries, newest first. A zero limit uses the server default.
func (c *Client) AuditEntries(ctx context.Context, limit int, action string) ([]*models.AuditEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if action != "" {
		q.Set("action", action)
	}

	path := "/api/superadmin/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Entries []*models.AuditEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// VerifyAudit asks the server to check the audit hash chain.
func (c *Client) VerifyAudit(ctx context.Context) (valid bool, count int, err error) {
	var resp struct {
		Valid bool `json:"valid"`
		Count int  `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/superadmin/audit/verify", nil, &resp); err != nil {
		return false, 0, err
	}
	return resp.Valid, resp.Count, nil
}

// ValidateTrade checks a trade against the server's schema. A nil result means the trade is valid.
func (c *Client) ValidateTrade(ctx context.Context, t trade.Trade) (trade.ValidationErrors, error) {
	var resp struct {
		Valid  bool                   `json:"valid"`
		Errors trade.ValidationErrors `json:"errors"`
	}
	err := c.do(ctx, http.MethodPost, "/api/trades/validate", t, &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		return apiErr.Fields, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.storage.Get(ctx, SessionKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read stored session")
	}
	if len(token) > 0 {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: string(token)})
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	c.captureSession(ctx, res)

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode >= 300 {
		return decodeError(res.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// captureSession stores a newly issued session token and forgets a cleared one.
func (c *Client) captureSession(ctx context.Context, res *http.Response) {
	for _, cookie := range res.Cookies() {
		if cookie.Name != session.CookieName {
			continue
		}

		value := []byte(cookie.Value)
		if cookie.MaxAge < 0 {
			value = nil
		}
		if err := c.storage.Set(ctx, SessionKey, value); err != nil {
			log.Warn().Err(err).Msg("Failed to store session")
		}
	}
}

func (c *Client) forgetSession(ctx context.Context) {
	if err := c.storage.Set(ctx, SessionKey, nil); err != nil {
		log.Warn().Err(err).Msg("Failed to clear stored session")
	}
}
