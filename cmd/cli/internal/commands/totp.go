package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wolfeidau/tradejournal/internal/client"
)

type TOTPSetupCmd struct {
	QROut string `help:"write the QR code PNG to this path" type:"path"`
}

func (c *TOTPSetupCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	enrollment, err := api.TOTPSetup(ctx)
	if errors.Is(err, client.ErrNotFound) {
		return errors.New("TOTP setup is disabled on the server")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.out(), "Secret:  %s\n", enrollment.Secret)
	fmt.Fprintf(globals.out(), "URI:     %s\n", enrollment.OTPAuthURL)

	if c.QROut == "" {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(enrollment.QRCode, "data:image/png;base64,"))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}
	if err := os.WriteFile(c.QROut, data, 0o600); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}

	fmt.Fprintf(globals.out(), "QR code: %s\n", c.QROut)
	return nil
}
