// internal/provider/simulated.go
package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/inboxpilot/warmup-backend/internal/config"
	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
)

// SimulatedProvider stands in for a real mailbox provider. Failure rates come
// from configuration, so demos and tests can force deterministic outcomes.
type SimulatedProvider struct {
	mu      sync.Mutex
	rng     *rand.Rand
	invalid map[string]bool
	serial  int
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		invalid: map[string]bool{},
	}
}

// NewSeededProvider returns a provider with a fixed random source.
func NewSeededProvider(seed int64) *SimulatedProvider {
	return &SimulatedProvider{
		rng:     rand.New(rand.NewSource(seed)),
		invalid: map[string]bool{},
	}
}

// InvalidateToken makes the provider reject a token until it is refreshed.
func (p *SimulatedProvider) InvalidateToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalid[token] = true
}

func (p *SimulatedProvider) SendEmail(ctx context.Context, token, from, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewTransport("send", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid[token] {
		return appErrors.NewAuth("send", fmt.Errorf("token rejected"))
	}
	if p.rng.Float64() < config.SimulationAuthFailureRate() {
		// Token expires mid-flight; it stays rejected until refreshed.
		p.invalid[token] = true
		return appErrors.NewAuth("send", fmt.Errorf("token expired"))
	}
	if p.rng.Float64() < config.SimulationTransportFailureRate() {
		return appErrors.NewTransport("send", fmt.Errorf("recipient %s rejected", to))
	}
	return nil
}

func (p *SimulatedProvider) ValidateToken(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, appErrors.NewTransport("validate", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.invalid[token], nil
}

func (p *SimulatedProvider) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewTransport("refresh", err)
	}
	if refreshToken == "" {
		return nil, appErrors.NewAuth("refresh", fmt.Errorf("missing refresh token"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalid[refreshToken] {
		return nil, appErrors.NewAuth("refresh", fmt.Errorf("refresh token revoked"))
	}

	p.serial++
	return &TokenPair{
		AccessToken:  fmt.Sprintf("sim-access-%d", p.serial),
		RefreshToken: fmt.Sprintf("sim-refresh-%d", p.serial),
		ExpiresIn:    3600,
	}, nil
}

var _ EmailProvider = (*SimulatedProvider)(nil)
