package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/wolfeidau/tradejournal/internal/logger"
	"github.com/wolfeidau/tradejournal/internal/totp"
)

// TOTPFlags selects where the shared TOTP secret comes from.
type TOTPFlags struct {
	Secret         string        `help:"base32 TOTP secret" env:"TRADEJOURNAL_TOTP_SECRET"`
	SSMParameter   string        `help:"SSM parameter holding the TOTP secret (overrides --totp-secret)" env:"TRADEJOURNAL_TOTP_SSM_PARAMETER"`
	SSMCacheTTL    time.Duration `help:"how long a secret read from SSM is cached" default:"5m" env:"TRADEJOURNAL_TOTP_SSM_CACHE_TTL"`
	SSMEndpointURL string        `help:"SSM endpoint URL override (for LocalStack)" default:"" env:"TRADEJOURNAL_TOTP_SSM_ENDPOINT_URL"`
	SecretTimeout  time.Duration `help:"timeout for retrieving the secret" default:"5s" env:"TRADEJOURNAL_TOTP_SECRET_TIMEOUT"`
	RenderTimeout  time.Duration `help:"timeout for rendering the QR code" default:"5s" env:"TRADEJOURNAL_TOTP_RENDER_TIMEOUT"`
	Issuer         string        `help:"issuer shown in authenticator apps" default:"TradeJournal" env:"TRADEJOURNAL_TOTP_ISSUER"`
}

func (f *TOTPFlags) Validate() error {
	if f.Secret == "" && f.SSMParameter == "" {
		return errors.New("TOTP secret is required (--totp-secret or TRADEJOURNAL_TOTP_SECRET, or --totp-ssm-parameter)")
	}
	return nil
}

func (f *TOTPFlags) config() totp.Config {
	return totp.Config{
		Issuer:        f.Issuer,
		SecretTimeout: f.SecretTimeout,
		RenderTimeout: f.RenderTimeout,
	}
}

func (f *TOTPFlags) provider(ctx context.Context) (totp.SecretProvider, error) {
	if f.SSMParameter == "" {
		return totp.NewStaticProvider(f.Secret), nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
		if f.SSMEndpointURL != "" {
			o.BaseEndpoint = aws.String(f.SSMEndpointURL)
		}
	})

	return totp.NewSSMProvider(client, f.SSMParameter, f.SSMCacheTTL), nil
}

// TOTPSetupCmd prints the enrollment so the superadmin can add the account to an authenticator app
// without enabling the HTTP endpoint.
type TOTPSetupCmd struct {
	TOTP  TOTPFlags `embed:"" prefix:"totp-"`
	QROut string    `help:"write the QR code PNG to this path" type:"path"`
}

func (c *TOTPSetupCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	if err := c.TOTP.Validate(); err != nil {
		return err
	}

	provider, err := c.TOTP.provider(ctx)
	if err != nil {
		return err
	}

	enrollment, err := totp.NewService(provider, c.TOTP.config()).Enroll(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate TOTP setup: %w", err)
	}

	fmt.Printf("Secret:  %s\n", enrollment.Secret)
	fmt.Printf("URI:     %s\n", enrollment.OTPAuthURL)

	if c.QROut == "" {
		return nil
	}

	png, err := decodeDataURI(enrollment.QRCode)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.QROut, png, 0o600); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}

	log.Info().Str("path", c.QROut).Msg("Wrote QR code")
	return nil
}

const pngDataPrefix = "data:image/png;base64,"

func decodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, pngDataPrefix) {
		return nil, errors.New("QR code is not a PNG data URI")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, pngDataPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to decode QR code: %w", err)
	}
	return data, nil
}
