package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/wolfeidau/tradejournal/internal/trade"
	"gopkg.in/yaml.v3"
)

type ValidateTradeCmd struct {
	File string `arg:"" type:"existingfile" help:"trade to validate, YAML or JSON"`
}

func (c *ValidateTradeCmd) Run(ctx context.Context, globals *Globals) error {
	t, err := loadTrade(c.File)
	if err != nil {
		return err
	}

	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	fields, err := api.ValidateTrade(ctx, *t)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		fmt.Fprintln(globals.out(), "Trade is valid")
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(globals.out(), "%s: %s\n", name, fields[name])
	}
	return fmt.Errorf("trade has %d invalid fields", len(fields))
}

// loadTrade reads a trade file. YAML is a superset of JSON so both are accepted; the document is
// re-encoded as JSON so decimals and dates decode exactly as the API does.
func loadTrade(path string) (*trade.Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse trade file: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert trade file: %w", err)
	}

	var t trade.Trade
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("invalid trade file: %w", err)
	}
	return &t, nil
}
