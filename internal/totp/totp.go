// Package totp provides TOTP enrollment and verification for the superadmin account.
package totp

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
)

// ErrEnrollment is returned when the provisioning URI or QR code cannot be produced.
var ErrEnrollment = errors.New("totp enrollment failed")

// Fixed algorithm parameters, compatible with common authenticator apps.
const (
	Digits    = otp.DigitsSix
	Period    = 30 // seconds
	Skew      = 1  // allow +/- 1 period for clock drift
	Algorithm = otp.AlgorithmSHA1

	DefaultIssuer       = "TradeJournal"
	DefaultAccountLabel = "superadmin"

	qrSize = 256
)

// Enrollment is everything an authenticator app needs to start generating codes.
type Enrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
}

// Config configures a Service.
type Config struct {
	Issuer        string
	AccountLabel  string
	SecretTimeout time.Duration // bound on secret retrieval
	RenderTimeout time.Duration // bound on QR rendering
}

// Service produces enrollments and validates codes for a single shared secret.
type Service struct {
	provider SecretProvider
	cfg      Config
}

// NewService creates a Service, filling unset config with defaults.
func NewService(provider SecretProvider, cfg Config) *Service {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.AccountLabel == "" {
		cfg.AccountLabel = DefaultAccountLabel
	}
	if cfg.SecretTimeout <= 0 {
		cfg.SecretTimeout = 5 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 5 * time.Second
	}
	return &Service{provider: provider, cfg: cfg}
}

// Enroll returns the secret, its provisioning URI and a PNG QR code as a data URI.
// It neither persists nor rotates the secret.
func (s *Service) Enroll(ctx context.Context) (*Enrollment, error) {
	secret, err := s.secret(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := GenerateCode(secret, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: secret is not valid base32: %w", ErrEnrollment, err)
	}

	uri := ProvisioningURI(s.cfg.Issuer, s.cfg.AccountLabel, secret)

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid provisioning uri: %w", ErrEnrollment, err)
	}

	qr, err := s.renderQRCode(ctx, key)
	if err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret:     secret,
		OTPAuthURL: uri,
		QRCode:     qr,
	}, nil
}

// Validate reports whether code is valid for the current time window.
func (s *Service) Validate(ctx context.Context, code string) (bool, error) {
	return s.ValidateAt(ctx, code, time.Now())
}

// ValidateAt reports whether code is valid at t.
func (s *Service) ValidateAt(ctx context.Context, code string, t time.Time) (bool, error) {
	secret, err := s.secret(ctx)
	if err != nil {
		return false, err
	}

	valid, err := totp.ValidateCustom(code, secret, t.UTC(), validateOpts())
	if err != nil {
		// malformed codes are simply invalid
		log.Debug().Err(err).Msg("TOTP code rejected")
		return false, nil
	}

	return valid, nil
}

// GenerateCode returns the code for secret at t. Used by tooling and tests.
func GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), validateOpts())
}

// ProvisioningURI builds an otpauth:// URI.
// Format: otpauth://totp/ISSUER:ACCOUNT?secret=SECRET&issuer=ISSUER&algorithm=SHA1&digits=6&period=30
func ProvisioningURI(issuer, account, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=%s&digits=%d&period=%d",
		url.PathEscape(issuer), url.PathEscape(account), url.QueryEscape(secret),
		url.QueryEscape(issuer), Algorithm.String(), Digits.Length(), Period)
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    Digits,
		Algorithm: Algorithm,
	}
}

func (s *Service) secret(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SecretTimeout)
	defer cancel()

	secret, err := s.provider.Secret(ctx)
	if err != nil {
		if errors.Is(err, ErrSecretUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}

	return secret, nil
}

// renderQRCode encodes the key as a PNG data URI, giving up after RenderTimeout.
func (s *Service) renderQRCode(ctx context.Context, key *otp.Key) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	type result struct {
		data string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		img, err := key.Image(qrSize, qrSize)
		if err != nil {
			done <- result{err: err}
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			done <- result{err: err}
			return
		}

		done <- result{data: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: failed to render qr code: %w", ErrEnrollment, res.err)
		}
		return res.data, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: qr rendering: %w", ErrEnrollment, ctx.Err())
	}
}
