package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

const auditColumns = `id, ts, action, category, detail, ip_address, user_agent, success, actor_id, prev_hash, hash`

// AuditStore implements store.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new PostgreSQL-backed audit store.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts the entry and sets its ID.
func (s *AuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			ts, action, category, detail, ip_address, user_agent,
			success, actor_id, prev_hash, hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		entry.Timestamp,
		entry.Action,
		entry.Category,
		entry.Detail,
		entry.IPAddress,
		entry.UserAgent,
		entry.Success,
		entry.ActorID,
		entry.PrevHash,
		entry.Hash,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", mapPostgresError(err))
	}

	return nil
}

// Last returns the newest entry or nil when the log is empty.
func (s *AuditStore) Last(ctx context.Context) (*models.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query last audit entry: %w", mapPostgresError(err))
	}

	entry, err := pgx.CollectExactlyOneRow(rows, scanAuditEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last audit entry: %w", mapPostgresError(err))
	}

	return entry, nil
}

// List returns entries newest first.
func (s *AuditStore) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_log
		WHERE ($1::text = '' OR action = $1::text)
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, opts.Action, opts.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", mapPostgresError(err))
	}

	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", mapPostgresError(err))
	}

	return entries, nil
}

// Walk streams every entry in id order.
func (s *AuditStore) Walk(ctx context.Context, fn func(*models.AuditEntry) error) error {
	rows, err := s.pool.Query(ctx, `SELECT `+auditColumns+` FROM audit_log ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to walk audit log: %w", mapPostgresError(err))
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	return rows.Err()
}

func scanAuditEntry(row pgx.CollectableRow) (*models.AuditEntry, error) {
	var e models.AuditEntry
	err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.Action,
		&e.Category,
		&e.Detail,
		&e.IPAddress,
		&e.UserAgent,
		&e.Success,
		&e.ActorID,
		&e.PrevHash,
		&e.Hash,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
