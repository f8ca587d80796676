package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated superadmin session.
// Only the session ID travels in the signed cookie token; everything else lives server-side.
type Session struct {
	SessionID uuid.UUID // UUIDv7
	UserID    uuid.UUID // Who is logged in

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
