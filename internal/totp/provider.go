package totp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrSecretUnavailable is returned when the shared TOTP secret cannot be retrieved.
var ErrSecretUnavailable = errors.New("totp secret unavailable")

// SecretProvider supplies the shared TOTP secret (base32).
type SecretProvider interface {
	Secret(ctx context.Context) (string, error)
}

// StaticProvider returns a secret fixed at startup, typically from configuration.
type StaticProvider struct {
	secret string
}

// NewStaticProvider creates a provider for a fixed secret.
func NewStaticProvider(secret string) *StaticProvider {
	return &StaticProvider{secret: strings.TrimSpace(secret)}
}

// Secret returns the configured secret or ErrSecretUnavailable when it is empty.
func (p *StaticProvider) Secret(ctx context.Context) (string, error) {
	if p.secret == "" {
		return "", ErrSecretUnavailable
	}
	return p.secret, nil
}

// ssmFetchTimeout bounds a shared lookup, which outlives the caller that started it.
const ssmFetchTimeout = 10 * time.Second

// ParameterGetter is the subset of the SSM client used by SSMProvider.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMProvider reads the secret from AWS SSM Parameter Store.
// Values are cached for ttl and concurrent misses share a single lookup.
type SSMProvider struct {
	client    ParameterGetter
	parameter string
	ttl       time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	cached    string
	fetchedAt time.Time
}

// NewSSMProvider creates a provider for the named SecureString parameter.
func NewSSMProvider(client ParameterGetter, parameter string, ttl time.Duration) *SSMProvider {
	return &SSMProvider{
		client:    client,
		parameter: parameter,
		ttl:       ttl,
	}
}

// Secret returns the cached secret or fetches it from SSM.
func (p *SSMProvider) Secret(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.cached != "" && time.Since(p.fetchedAt) < p.ttl {
		secret := p.cached
		p.mu.RUnlock()
		return secret, nil
	}
	p.mu.RUnlock()

	ch := p.group.DoChan(p.parameter, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ssmFetchTimeout)
		defer cancel()
		return p.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		log.Debug().Str("parameter", p.parameter).Bool("shared", res.Shared).Msg("Loaded TOTP secret from SSM")
		return res.Val.(string), nil
	}
}

func (p *SSMProvider) fetch(ctx context.Context) (string, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to get parameter %s: %w", ErrSecretUnavailable, p.parameter, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil || strings.TrimSpace(*out.Parameter.Value) == "" {
		return "", fmt.Errorf("%w: parameter %s has no value", ErrSecretUnavailable, p.parameter)
	}

	secret := strings.TrimSpace(*out.Parameter.Value)

	p.mu.Lock()
	p.cached = secret
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return secret, nil
}
