// Package profile keeps the CLI's local state: the session token and UI preferences.
package profile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/state"
	sqlitestore "github.com/wolfeidau/tradejournal/internal/store/sqlite"
)

const dbName = "state.db"

// Profile is a directory holding a SQLite key/value database.
type Profile struct {
	dir string
	db  *sql.DB
}

// Open opens the profile in dir, creating it if needed.
// If dir is empty, uses ~/.tradejournal/
func Open(ctx context.Context, dir string) (*Profile, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".tradejournal")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	db, err := sqlitestore.Open(ctx, filepath.Join(dir, dbName))
	if err != nil {
		return nil, err
	}

	log.Debug().Str("dir", dir).Msg("profile opened")

	return &Profile{dir: dir, db: db}, nil
}

// Dir returns the profile directory.
func (p *Profile) Dir() string {
	return p.dir
}

// Storage returns the key/value storage backing the session token and UI state.
func (p *Profile) Storage() state.Storage {
	return state.NewSQLiteStorage(p.db)
}

// Close closes the database.
func (p *Profile) Close() error {
	return p.db.Close()
}
