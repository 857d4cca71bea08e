// Package ai assembles the language model providers behind a single
// registry with per-provider rate limiting.
package ai

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

// Registry holds the configured providers by name
type Registry struct {
	providers map[string]outbound.LLMProvider
	mutex     sync.RWMutex
	logger    *zap.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]outbound.LLMProvider),
		logger:    logger.Named("provider-registry"),
	}
}

// Register adds a provider under its own name
func (r *Registry) Register(provider outbound.LLMProvider) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[provider.Name()] = provider
	r.logger.Info("Provider registered", zap.String("provider", provider.Name()))
}

// Provider resolves a provider by name
func (r *Registry) Provider(name string) (outbound.LLMProvider, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	provider, ok := r.providers[name]
	return provider, ok
}

// RateLimitedProvider wraps a provider with a token-bucket limiter so a
// burst of traffic can't blow through the upstream quota
type RateLimitedProvider struct {
	inner   outbound.LLMProvider
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedProvider wraps a provider with a requests-per-minute limit.
// A non-positive limit disables limiting.
func NewRateLimitedProvider(inner outbound.LLMProvider, requestsPerMinute int, logger *zap.Logger) outbound.LLMProvider {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		logger:  logger.Named("rate-limiter"),
	}
}

// Name returns the wrapped provider's name
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

// Invoke waits for a rate token, then delegates
func (p *RateLimitedProvider) Invoke(ctx context.Context, req outbound.ProviderRequest) (*outbound.ProviderResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}
	return p.inner.Invoke(ctx, req)
}

var _ outbound.LLMProvider = (*RateLimitedProvider)(nil)
