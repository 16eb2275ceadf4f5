package llm

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"

	"parley/internal/domain"
)

// RateLimitedProvider throttles calls to the wrapped provider with a token
// bucket. Callers block until a token is available or their context ends.
type RateLimitedProvider struct {
	inner   domain.LLMProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with an rps/burst token bucket.
// A non-positive rps disables limiting.
func NewRateLimitedProvider(inner domain.LLMProvider, rps float64, burst int) *RateLimitedProvider {
	if rps <= 0 {
		return &RateLimitedProvider{inner: inner, limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name implements domain.LLMProvider.
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

// Generate implements domain.LLMProvider.
func (p *RateLimitedProvider) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", domain.NewDomainError("RateLimitedProvider.Generate", domain.ErrRateLimit, err.Error())
	}
	return p.inner.Generate(ctx, req)
}

// GenerateStructured implements domain.LLMProvider.
func (p *RateLimitedProvider) GenerateStructured(ctx context.Context, req domain.GenerateRequest, schema json.RawMessage, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.NewDomainError("RateLimitedProvider.GenerateStructured", domain.ErrRateLimit, err.Error())
	}
	return p.inner.GenerateStructured(ctx, req, schema, out)
}

// Compile-time interface check.
var _ domain.LLMProvider = (*RateLimitedProvider)(nil)
