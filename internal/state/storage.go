package state

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/wolfeidau/tradejournal/internal/store/sqlite"
)

// Storage is durable key/value storage for client state.
// Get returns nil, nil when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStorage keeps values in memory. Useful for tests and one-shot commands.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage returns empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.values[key]), nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = slices.Clone(value)
	return nil
}

// NewSQLiteStorage stores client state in the kv table of a database opened with sqlite.Open.
func NewSQLiteStorage(db *sql.DB) Storage {
	return sqlite.NewKVStore(db)
}
