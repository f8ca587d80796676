package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/wolfeidau/tradejournal/cmd/server/internal/commands"
	"github.com/wolfeidau/tradejournal/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Debug        bool                     `help:"Enable debug mode."`
		Version      kong.VersionFlag
		Config       kong.ConfigFlag          `help:"Path to a YAML config file."`
		Serve        commands.ServeCmd        `cmd:"" help:"Start the API server."`
		TOTPSetup    commands.TOTPSetupCmd    `cmd:"" name:"totp-setup" help:"Print the TOTP enrollment for the superadmin account."`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Hash a superadmin password with bcrypt."`
	}
)

func main() {
	// a missing .env is fine; the environment may already be configured
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tradejournal-server"),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.YAML, "/etc/tradejournal/config.yaml", "~/.tradejournal/server.yaml"),
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
