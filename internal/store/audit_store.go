package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/tradejournal/internal/models"
)

var (
	// ErrAuditConflict means another entry already links to the same predecessor
	// or carries the same hash. The writer's view of the chain head is stale.
	ErrAuditConflict = errors.New("audit chain head moved")

	// ErrAuditRejected means the store refused the entry itself. Retrying cannot help.
	ErrAuditRejected = errors.New("audit entry rejected")
)

// AuditStore persists audit entries. Implementations never update or delete entries.
type AuditStore interface {
	// Append stores the entry and sets entry.ID.
	// Returns ErrAuditConflict if entry.PrevHash or entry.Hash is already in the log.
	Append(ctx context.Context, entry *models.AuditEntry) error

	// Last returns the most recently appended entry, or nil if the log is empty.
	Last(ctx context.Context) (*models.AuditEntry, error)

	// List returns entries matching the options, newest first.
	List(ctx context.Context, opts ListAuditOptions) ([]*models.AuditEntry, error)

	// Walk calls fn for every entry in append order, stopping at the first error.
	Walk(ctx context.Context, fn func(*models.AuditEntry) error) error
}

// ListAuditOptions specifies filters for listing audit entries
type ListAuditOptions struct {
	Action string // Filter by action (empty = all)
	Limit  int    // Max results (0 = DefaultAuditLimit)
}

// DefaultAuditLimit is the page size used when ListAuditOptions.Limit is zero.
const DefaultAuditLimit = 100

// EffectiveLimit returns the limit to apply, capped at 1000.
func (o ListAuditOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultAuditLimit
	case o.Limit > 1000:
		return 1000
	default:
		return o.Limit
	}
}
