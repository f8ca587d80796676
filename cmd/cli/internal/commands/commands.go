package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wolfeidau/tradejournal/cmd/cli/internal/profile"
	"github.com/wolfeidau/tradejournal/internal/client"
	"github.com/wolfeidau/tradejournal/internal/state"
)

type Globals struct {
	Debug   bool
	Version string

	Server  string
	Timeout time.Duration
	Profile string

	// Out receives command output; stdout when nil.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// connect opens the local profile and a client bound to it. Callers close the profile.
func connect(ctx context.Context, globals *Globals) (*client.Client, *profile.Profile, error) {
	p, err := profile.Open(ctx, globals.Profile)
	if err != nil {
		return nil, nil, err
	}

	cfg := client.DefaultConfig()
	if globals.Server != "" {
		cfg.ServerURL = globals.Server
	}
	if globals.Timeout > 0 {
		cfg.Timeout = globals.Timeout
	}

	c, err := client.New(cfg, state.NewAuthStore(), client.WithStorage(p.Storage()))
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}

	return c, p, nil
}

var errNotLoggedIn = errors.New("not logged in, run: tradejournal login")

// requireLogin replaces a rejected session with a hint to log in.
func requireLogin(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return errNotLoggedIn
	}
	return err
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
