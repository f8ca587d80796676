package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const auditColumns = `id, ts_micros, action, category, detail, ip_address, user_agent, success, actor_id, prev_hash, hash`

// AuditStore implements store.AuditStore on SQLite.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore wraps an open database. See Open.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts the entry and sets its ID.
func (s *AuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	var actor sql.NullString
	if entry.ActorID != nil {
		actor = sql.NullString{String: entry.ActorID.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			ts_micros, action, category, detail, ip_address, user_agent,
			success, actor_id, prev_hash, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UnixMicro(),
		entry.Action,
		entry.Category,
		entry.Detail,
		entry.IPAddress,
		entry.UserAgent,
		entry.Success,
		actor,
		entry.PrevHash,
		entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", mapAuditError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read audit entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// Last returns the newest entry, or nil when the log is empty.
func (s *AuditStore) Last(ctx context.Context) (*models.AuditEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT 1`)

	entry, err := scanAuditEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last audit entry: %w", err)
	}

	return entry, nil
}

// List returns entries newest first.
func (s *AuditStore) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE (? = '' OR action = ?)
		ORDER BY id DESC
		LIMIT ?`,
		opts.Action, opts.Action, opts.EffectiveLimit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Walk visits entries in append order. Rows are buffered first so fn may use the database.
func (s *AuditStore) Walk(ctx context.Context, fn func(*models.AuditEntry) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to walk audit log: %w", err)
	}

	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return err
		}
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditEntry(row scanner) (*models.AuditEntry, error) {
	var (
		e      models.AuditEntry
		micros int64
		actor  sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&micros,
		&e.Action,
		&e.Category,
		&e.Detail,
		&e.IPAddress,
		&e.UserAgent,
		&e.Success,
		&actor,
		&e.PrevHash,
		&e.Hash,
	)
	if err != nil {
		return nil, err
	}

	e.Timestamp = time.UnixMicro(micros).UTC()

	if actor.Valid {
		id, err := uuid.Parse(actor.String)
		if err != nil {
			return nil, fmt.Errorf("invalid actor id %q: %w", actor.String, err)
		}
		e.ActorID = &id
	}

	return &e, nil
}

// mapAuditError translates constraint failures into store sentinels.
func mapAuditError(err error) error {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return err
	}

	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %w", store.ErrAuditConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %w", store.ErrAuditRejected, err)
	}
	return err
}
