package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mkarpenko/hookrelay/internal/auth"
	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/observability"
	"github.com/mkarpenko/hookrelay/internal/ratelimit"
	"go.uber.org/zap"
)

// HeaderAPIKey carries the shared webhook secret.
const HeaderAPIKey = "API-Key"

// RequireAPIKey rejects requests whose API-Key header does not match the
// configured secret. It fails closed on an absent header.
func RequireAPIKey(authenticator *auth.Authenticator, metrics *observability.Metrics, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if authenticator.Authenticate(c.Get(HeaderAPIKey)) {
			return c.Next()
		}

		metrics.IncAuthFailure()
		logger.Warn("rejected request with missing or invalid api key",
			zap.String("path", c.Path()),
			zap.String("clientIp", c.IP()),
		)
		return toHTTPError(domain.ErrUnauthorized)
	}
}

// RateLimitByClientIP admits requests through the fixed-window limiter keyed
// by source address.
func RateLimitByClientIP(limiter ratelimit.RateLimiter, metrics *observability.Metrics, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		allowed, err := limiter.Allow(c.Context(), c.IP())
		if err != nil {
			return fmt.Errorf("rate limiter failed: %w", err)
		}
		if !allowed {
			metrics.IncRateLimitRejected()
			logger.Warn("rate limit exceeded",
				zap.String("path", c.Path()),
				zap.String("clientIp", c.IP()),
			)
			return toHTTPError(domain.ErrRateLimited)
		}
		return c.Next()
	}
}
