// Package audit records security-relevant events in a tamper-evident, append-only log.
// Each entry carries the hash of its predecessor, so edits or deletions break the chain.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
	"github.com/wolfeidau/tradejournal/internal/telemetry"
)

// GenesisHash is the PrevHash of the first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrChainBroken is returned by Verify when an entry does not link to its predecessor.
var ErrChainBroken = errors.New("audit chain broken")

// Event describes something worth recording. The logger fills in timestamp and hashes.
type Event struct {
	Action    string
	Category  string
	Detail    string
	IPAddress string
	UserAgent string
	Success   bool
	ActorID   *uuid.UUID
}

// Config tunes write retries.
type Config struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// Logger appends hash-chained entries to a store.AuditStore.
type Logger struct {
	store   store.AuditStore
	cfg     Config
	metrics *telemetry.Metrics
	now     func() time.Time

	mu       sync.Mutex
	lastHash string
	loaded   bool
}

// NewLogger creates an audit logger.
func NewLogger(st store.AuditStore, cfg Config, metrics *telemetry.Metrics) *Logger {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 2 * time.Second
	}
	return &Logger{
		store:   st,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record appends an entry for the event, retrying transient store failures.
// Appends are serialised within a Logger. Writers in other processes are
// detected through store.ErrAuditConflict, after which the entry is relinked
// to the current head and retried.
func (l *Logger) Record(ctx context.Context, ev Event) (*models.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &models.AuditEntry{
		// storage backends keep microsecond precision
		Timestamp: l.now().UTC().Truncate(time.Microsecond),
		Action:    ev.Action,
		Category:  ev.Category,
		Detail:    ev.Detail,
		IPAddress: ev.IPAddress,
		UserAgent: ev.UserAgent,
		Success:   ev.Success,
		ActorID:   ev.ActorID,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, l.append(ctx, entry)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(l.cfg.MaxTries),
		backoff.WithMaxElapsedTime(l.cfg.MaxElapsedTime),
	)
	if err != nil {
		err = fmt.Errorf("failed to append audit entry: %w", err)
		l.recordFailure(ctx, ev, err)
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.AuditWritesTotal.Add(ctx, 1)
	}

	log.Debug().
		Int64("id", entry.ID).
		Str("action", entry.Action).
		Bool("success", entry.Success).
		Msg("Audit entry recorded")

	return entry, nil
}

// append links entry to the chain head and stores it. Any failure drops the
// cached head so the next attempt reads it from the store again.
func (l *Logger) append(ctx context.Context, entry *models.AuditEntry) error {
	head, err := l.loadHead(ctx)
	if err != nil {
		return err
	}

	// an earlier attempt may have committed even though the store reported an error
	if head != nil && entry.Hash != "" && head.Hash == entry.Hash {
		entry.ID = head.ID
		l.lastHash = entry.Hash
		return nil
	}

	entry.PrevHash = l.lastHash
	entry.Hash = ComputeHash(entry)

	err = l.store.Append(ctx, entry)
	if err == nil {
		l.lastHash = entry.Hash
		return nil
	}

	l.loaded = false

	switch {
	case errors.Is(err, store.ErrAuditConflict):
		log.Debug().Err(err).Str("action", entry.Action).Msg("Audit chain head moved, relinking")
		return err
	case errors.Is(err, store.ErrAuditRejected),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return backoff.Permanent(err)
	}

	log.Debug().Err(err).Str("action", entry.Action).Msg("Audit append failed, retrying")
	return err
}

// List returns recent entries, newest first.
func (l *Logger) List(ctx context.Context, opts store.ListAuditOptions) ([]*models.AuditEntry, error) {
	return l.store.List(ctx, opts)
}

// Verify walks the whole log and checks every link and hash. It returns the number of entries checked.
func (l *Logger) Verify(ctx context.Context) (int, error) {
	expectedPrev := GenesisHash
	count := 0

	err := l.store.Walk(ctx, func(e *models.AuditEntry) error {
		if e.PrevHash != expectedPrev {
			return fmt.Errorf("%w: entry %d does not link to its predecessor", ErrChainBroken, e.ID)
		}
		if computed := ComputeHash(e); computed != e.Hash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, e.ID)
		}
		expectedPrev = e.Hash
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	return count, nil
}

// ComputeHash returns the SHA-256 of the entry's content and PrevHash.
func ComputeHash(e *models.AuditEntry) string {
	actor := ""
	if e.ActorID != nil {
		actor = e.ActorID.String()
	}

	data := strings.Join([]string{
		strconv.FormatInt(e.Timestamp.UnixMicro(), 10),
		e.Action,
		e.Category,
		e.Detail,
		e.IPAddress,
		e.UserAgent,
		strconv.FormatBool(e.Success),
		actor,
		e.PrevHash,
	}, "|")

	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// loadHead refreshes the cached chain head when it is not known to be current.
// It returns the stored head entry when it was re-read, nil otherwise.
func (l *Logger) loadHead(ctx context.Context) (*models.AuditEntry, error) {
	if l.loaded {
		return nil, nil
	}

	last, err := l.store.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last audit entry: %w", err)
	}

	l.lastHash = GenesisHash
	if last != nil {
		l.lastHash = last.Hash
	}
	l.loaded = true

	return last, nil
}

func (l *Logger) recordFailure(ctx context.Context, ev Event, err error) {
	if l.metrics != nil {
		l.metrics.AuditWriteFailures.Add(ctx, 1)
	}
	log.Error().Err(err).Str("action", ev.Action).Bool("success", ev.Success).Msg("Audit entry lost")
}
