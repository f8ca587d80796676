package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Manager creates and validates server-side sessions backed by a store.SessionStore.
type Manager struct {
	sessions store.SessionStore
	tokens   *Tokens
	cookies  CookieManager
	ttl      time.Duration
}

// NewManager creates a session manager.
func NewManager(sessions store.SessionStore, tokens *Tokens, cookies CookieManager, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	return &Manager{
		sessions: sessions,
		tokens:   tokens,
		cookies:  cookies,
		ttl:      ttl,
	}, nil
}

// Cookies returns the cookie manager used for issuing and clearing.
func (m *Manager) Cookies() CookieManager {
	return m.cookies
}

// Start creates a session for the user, stores it and attaches the cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID uuid.UUID, userAgent, ip string) (*models.Session, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	sess := &models.Session{
		SessionID:  sessionID,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastUsedAt: now,
		UserAgent:  userAgent,
		IPAddress:  ip,
	}

	token, err := m.tokens.Sign(sess.SessionID, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.cookies.Issue(w, token)

	log.Debug().Str("session_id", sessionID.String()).Str("user_id", userID.String()).Msg("Session started")

	return sess, nil
}

// Validate resolves the request's cookie to a live session.
// Cookie presence is necessary but not sufficient: the signature, expiry and store are all checked.
func (m *Manager) Validate(r *http.Request) (*models.Session, error) {
	token, err := m.cookies.Token(r)
	if err != nil {
		return nil, err
	}

	sessionID, err := m.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sess, err := m.sessions.Get(r.Context(), sessionID)
	switch {
	case errors.Is(err, store.ErrSessionExpired):
		return nil, ErrExpiredSession
	case errors.Is(err, store.ErrSessionNotFound):
		return nil, ErrInvalidSession
	case err != nil:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := m.sessions.UpdateLastUsed(r.Context(), sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to update session last used")
	}

	return sess, nil
}

// End deletes the request's session if one is present and valid, and always clears the cookie.
// It returns the ended session, or nil when the request carried none.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) *models.Session {
	defer m.cookies.Clear(w)

	sess, err := m.Validate(r)
	if err != nil {
		log.Debug().Err(err).Msg("Logout without a valid session")
		return nil
	}

	if err := m.sessions.Delete(r.Context(), sess.SessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		log.Warn().Err(err).Str("session_id", sess.SessionID.String()).Msg("Failed to delete session")
	}

	return sess
}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext extracts the session from the request context.
// This should be called from handlers protected by RequireSession.
func FromContext(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*models.Session)
	return sess, ok
}
