package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tradejournal/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user account storage.
type UserStore interface {
	// Create creates a new user.
	// Returns ErrUserAlreadyExists if the ID or email is already taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email address (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePreferences replaces the preferences of an existing user.
	UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs models.UserPreferences) error
}
