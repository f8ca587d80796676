package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/wolfeidau/tradejournal/internal/client"
	"github.com/wolfeidau/tradejournal/internal/guard"
	"github.com/wolfeidau/tradejournal/internal/models"
)

type LoginCmd struct {
	Email    string `help:"superadmin email" required:"" env:"TRADEJOURNAL_EMAIL"`
	Password string `help:"password; read from stdin when empty" env:"TRADEJOURNAL_PASSWORD"`
	Code     string `help:"current TOTP code" required:""`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	password := c.Password
	if password == "" {
		if password, err = readLine(os.Stdin); err != nil {
			return err
		}
	}

	user, err := api.Login(ctx, c.Email, password, c.Code)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("login failed: invalid credentials")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(globals.out(), "Logged in as %s\n", user.Email)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := api.Logout(ctx); err != nil {
		// the local session is already forgotten
		return fmt.Errorf("logout request failed: %w", err)
	}

	fmt.Fprintln(globals.out(), "Logged out")
	return nil
}

// WhoamiCmd shows the signed-in user. The view is gated by an auth guard over the client's
// AuthStore, the same way an interactive front end gates a protected page.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	redirected := false
	g := guard.New(api.Auth(), guard.NavigatorFunc(func(path string) {
		redirected = true
		fmt.Fprintf(globals.out(), "Session required, redirecting to %s\n", path)
	}), guard.DefaultLoginPath)
	defer g.Close()

	_, err = api.Refresh(ctx)
	g.Wait()

	if user, ok := g.Render(api.Auth().State().User).(*models.User); ok {
		fmt.Fprintf(globals.out(), "%s (%s)\n", user.Email, user.ID)
		return nil
	}

	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	if redirected {
		return errNotLoggedIn
	}
	return errors.New("session state unavailable")
}
