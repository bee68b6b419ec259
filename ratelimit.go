package genfix

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedGateway paces calls to a provider so a batch of cycles stays
// under its request quota. Calls block until a token is free or ctx ends.
type RateLimitedGateway struct {
	next     Gateway
	provider string
	limiter  *rate.Limiter
}

// NewRateLimitedGateway allows perMinute calls per minute with bursts of one
func NewRateLimitedGateway(next Gateway, provider string, perMinute int) *RateLimitedGateway {
	return &RateLimitedGateway{
		next:     next,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (g *RateLimitedGateway) Complete(ctx context.Context, prompt string) (Object, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &GatewayError{Provider: g.provider, Wrapped: err}
	}
	return g.next.Complete(ctx, prompt)
}
