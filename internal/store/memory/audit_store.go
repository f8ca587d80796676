package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

// AuditStore implements store.AuditStore using an in-memory slice.
type AuditStore struct {
	mu      sync.RWMutex
	entries []*models.AuditEntry
	prevs   map[string]struct{}
	hashes  map[string]struct{}
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		prevs:  make(map[string]struct{}),
		hashes: make(map[string]struct{}),
	}
}

// Append stores the entry and assigns its ID.
// Each PrevHash and Hash may appear only once, matching the SQL schemas.
func (s *AuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prevs[entry.PrevHash]; ok {
		return fmt.Errorf("%w: predecessor %.12s already linked", store.ErrAuditConflict, entry.PrevHash)
	}
	if _, ok := s.hashes[entry.Hash]; ok {
		return fmt.Errorf("%w: hash %.12s already stored", store.ErrAuditConflict, entry.Hash)
	}

	entry.ID = int64(len(s.entries) + 1)
	clone := *entry
	s.entries = append(s.entries, &clone)
	s.prevs[entry.PrevHash] = struct{}{}
	s.hashes[entry.Hash] = struct{}{}

	return nil
}

// Last returns the most recent entry, or nil if empty.
func (s *AuditStore) Last(ctx context.Context) (*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}

	clone := *s.entries[len(s.entries)-1]
	return &clone, nil
}

// List returns entries newest first.
func (s *AuditStore) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.EffectiveLimit()
	result := make([]*models.AuditEntry, 0, min(limit, len(s.entries)))

	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.entries[i]
		if opts.Action != "" && entry.Action != opts.Action {
			continue
		}
		clone := *entry
		result = append(result, &clone)
	}

	return result, nil
}

// Walk visits entries in append order.
func (s *AuditStore) Walk(ctx context.Context, fn func(*models.AuditEntry) error) error {
	s.mu.RLock()
	entries := make([]models.AuditEntry, len(s.entries))
	for i, e := range s.entries {
		entries[i] = *e
	}
	s.mu.RUnlock()

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&entries[i]); err != nil {
			return err
		}
	}

	return nil
}
