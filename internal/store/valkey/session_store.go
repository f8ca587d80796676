package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/valkey-io/valkey-go"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

const keyPrefix = "tradejournal:"

func sessionKey(id uuid.UUID) string {
	return keyPrefix + "session:" + id.String()
}

// SessionStore implements store.SessionStore using Valkey.
// Session keys carry a TTL matching the session expiry.
type SessionStore struct {
	client valkey.Client
}

// NewSessionStore creates a new Valkey-backed session store.
func NewSessionStore(client valkey.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create stores the session with a TTL matching its expiry.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("failed to create session: already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	cmd := s.client.B().Set().Key(sessionKey(session.SessionID)).Value(string(data)).PxMilliseconds(ttl.Milliseconds()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug().
		Str("session_id", session.SessionID.String()).
		Str("user_id", session.UserID.String()).
		Msg("Created session")

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(sessionKey(sessionID)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if session.IsExpired() {
		return nil, store.ErrSessionExpired
	}

	return &session, nil
}

// UpdateLastUsed rewrites the session with a fresh LastUsedAt, keeping its expiry.
func (s *SessionStore) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionExpired) {
			return store.ErrSessionNotFound
		}
		return err
	}

	session.LastUsedAt = time.Now()

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return store.ErrSessionNotFound
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	cmd := s.client.B().Set().Key(sessionKey(sessionID)).Value(string(data)).PxMilliseconds(ttl.Milliseconds()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to update session last_used_at: %w", err)
	}

	return nil
}

// Delete deletes a session by ID (logout).
func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	removed, err := s.client.Do(ctx, s.client.B().Del().Key(sessionKey(sessionID)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if removed == 0 {
		return store.ErrSessionNotFound
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Msg("Deleted session")

	return nil
}

// DeleteExpired is a no-op: Valkey evicts session keys when their TTL lapses.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	return 0, nil
}
