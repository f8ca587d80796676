package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Theme values shared by user preferences and the client UI store.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User is a trading journal account.
type User struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	DisplayName *string         `json:"displayName"`
	AvatarURL   *string         `json:"avatarUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	Preferences UserPreferences `json:"preferences"`
	Stats       UserStats       `json:"stats"`
}

// UserPreferences holds per-account display and accounting settings.
type UserPreferences struct {
	Theme           string          `json:"theme"`
	Currency        string          `json:"currency"`
	Timezone        string          `json:"timezone"`
	StartingCapital decimal.Decimal `json:"startingCapital"`
}

// UserStats is a denormalised summary of the account's trades.
type UserStats struct {
	TradeCount  int             `json:"tradeCount"`
	WinRate     float64         `json:"winRate"`
	TotalPnL    decimal.Decimal `json:"totalPnL"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// DefaultPreferences returns the preferences assigned to new accounts.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme:           ThemeLight,
		Currency:        "USD",
		Timezone:        "UTC",
		StartingCapital: decimal.Zero,
	}
}

// NewUser creates a user with a UUIDv7 ID and default preferences.
func NewUser(email string, displayName *string) (*User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		Preferences: DefaultPreferences(),
		Stats: UserStats{
			TotalPnL:    decimal.Zero,
			LastUpdated: now,
		},
	}, nil
}
