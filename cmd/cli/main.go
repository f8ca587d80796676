package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/cmd/cli/internal/commands"
	"github.com/wolfeidau/tradejournal/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Login         commands.LoginCmd         `cmd:"" help:"Log in as the superadmin"`
		Logout        commands.LogoutCmd        `cmd:"" help:"End the current session"`
		Whoami        commands.WhoamiCmd        `cmd:"" help:"Show the signed-in user"`
		TOTPSetup     commands.TOTPSetupCmd     `cmd:"" name:"totp-setup" help:"Fetch the TOTP enrollment"`
		Audit         commands.AuditCmd         `cmd:"" help:"Inspect the audit log"`
		Prefs         commands.PrefsCmd         `cmd:"" help:"Show or change UI preferences"`
		ValidateTrade commands.ValidateTradeCmd `cmd:"" help:"Validate a trade file against the server"`

		Server  string           `help:"API server URL" default:"http://localhost:8080" env:"TRADEJOURNAL_SERVER_URL"`
		Timeout time.Duration    `help:"request timeout" default:"30s" env:"TRADEJOURNAL_TIMEOUT"`
		Profile string           `help:"profile directory (default ~/.tradejournal)" type:"path" env:"TRADEJOURNAL_PROFILE"`
		Config  kong.ConfigFlag  `help:"Path to a YAML config file."`
		Debug   bool             `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tradejournal"),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.YAML, "~/.tradejournal/config.yaml"),
		kong.BindTo(ctx, (*context.Context)(nil)))

	level := zerolog.WarnLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Server:  cli.Server,
		Timeout: cli.Timeout,
		Profile: cli.Profile,
	})
	cmd.FatalIfErrorf(err)
}
