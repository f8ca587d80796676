package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

const userColumns = `
	user_id, email, display_name, avatar_url, created_at,
	theme, currency, timezone, starting_capital,
	trade_count, win_rate, total_pnl, stats_updated_at
`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.AvatarURL,
		user.CreatedAt,
		user.Preferences.Theme,
		user.Preferences.Currency,
		user.Preferences.Timezone,
		user.Preferences.StartingCapital,
		user.Stats.TradeCount,
		user.Stats.WinRate,
		user.Stats.TotalPnL,
		user.Stats.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().Str("user_id", user.ID.String()).Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// UpdatePreferences replaces the stored preferences of a user.
func (s *UserStore) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs models.UserPreferences) error {
	query := `
		UPDATE users
		SET theme = $2, currency = $3, timezone = $4, starting_capital = $5
		WHERE user_id = $1
	`

	result, err := s.pool.Exec(ctx, query, userID, prefs.Theme, prefs.Currency, prefs.Timezone, prefs.StartingCapital)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.Preferences.Theme,
		&user.Preferences.Currency,
		&user.Preferences.Timezone,
		&user.Preferences.StartingCapital,
		&user.Stats.TradeCount,
		&user.Stats.WinRate,
		&user.Stats.TotalPnL,
		&user.Stats.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return &user, nil
}
