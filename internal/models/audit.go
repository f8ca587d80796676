package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditActionLogin  = "LOGIN"
	AuditActionLogout = "LOGOUT"
)

// AuditCategoryAuth groups authentication related audit entries.
const AuditCategoryAuth = "auth"

// AuditEntry is a single append-only audit log record.
// PrevHash links each entry to its predecessor so tampering is detectable.
type AuditEntry struct {
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Action    string     `json:"action"`
	Category  string     `json:"category"`
	Detail    string     `json:"detail"`
	IPAddress string     `json:"ipAddress"`
	UserAgent string     `json:"userAgent"`
	Success   bool       `json:"success"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	PrevHash  string     `json:"prevHash"`
	Hash      string     `json:"hash"`
}
