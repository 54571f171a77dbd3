package ratelimit

import "context"

// RateLimiter admits or rejects requests per client key.
type RateLimiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}
