// Package valkey stores sessions in Valkey so they survive restarts and can be shared between replicas.
package valkey

import (
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// ParseOptions turns a valkey://, valkeys:// (TLS), redis:// or rediss:// URL
// into client options, including credentials and the database number.
func ParseOptions(uri string) (valkey.ClientOption, error) {
	opt, err := valkey.ParseURL(uri)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("invalid valkey url: %w", err)
	}
	return opt, nil
}

// NewClient connects using the URL. See ParseOptions.
func NewClient(uri string) (valkey.Client, error) {
	opt, err := ParseOptions(uri)
	if err != nil {
		return nil, err
	}
	return valkey.NewClient(opt)
}
