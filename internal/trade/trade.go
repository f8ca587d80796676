// Package trade defines the journal's trade record and its input validation.
package trade

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Sides a position can take.
const (
	SideLong  = "long"
	SideShort = "short"
)

const maxSymbolLength = 20

// MinPrice is the smallest accepted entry or exit price.
var MinPrice = decimal.RequireFromString("0.0001")

// Trade is a single journal entry as submitted by a client.
type Trade struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	EntryPrice decimal.Decimal  `json:"entryPrice"`
	ExitPrice  *decimal.Decimal `json:"exitPrice,omitempty"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
	EntryDate  time.Time        `json:"entryDate"`
	ExitDate   *time.Time       `json:"exitDate,omitempty"`
	Notes      string           `json:"notes,omitempty"`
}

// ValidationErrors maps a JSON field name to what is wrong with it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "invalid trade: " + strings.Join(parts, "; ")
}

// Validate checks the trade and returns ValidationErrors, or nil when it is acceptable.
func (t *Trade) Validate() error {
	errs := ValidationErrors{}

	symbol := strings.TrimSpace(t.Symbol)
	switch n := utf8.RuneCountInString(symbol); {
	case n == 0:
		errs["symbol"] = "is required"
	case n > maxSymbolLength:
		errs["symbol"] = "must be at most 20 characters"
	}

	if t.Side != SideLong && t.Side != SideShort {
		errs["side"] = `must be "long" or "short"`
	}

	if t.EntryPrice.LessThan(MinPrice) {
		errs["entryPrice"] = "must be at least 0.0001"
	}

	if t.ExitPrice != nil && t.ExitPrice.LessThan(MinPrice) {
		errs["exitPrice"] = "must be at least 0.0001"
	}

	if !t.Quantity.IsPositive() {
		errs["quantity"] = "must be greater than 0"
	}

	if t.Commission != nil && t.Commission.IsNegative() {
		errs["commission"] = "must not be negative"
	}

	if t.EntryDate.IsZero() {
		errs["entryDate"] = "is required"
	}

	if t.ExitDate != nil && !t.EntryDate.IsZero() && t.ExitDate.Before(t.EntryDate) {
		errs["exitDate"] = "must not be before entryDate"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
