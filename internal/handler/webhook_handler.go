package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mkarpenko/hookrelay/internal/auth"
	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/observability"
	"github.com/mkarpenko/hookrelay/internal/ratelimit"
	"go.uber.org/zap"
)

// WebhookService accepts a validated event for persistence and forwarding.
type WebhookService interface {
	Accept(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
}

type WebhookHandler struct {
	service WebhookService
	logger  *zap.Logger
}

func NewWebhookHandler(service WebhookService, logger *zap.Logger) (*WebhookHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("webhook service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{service: service, logger: logger}, nil
}

// RegisterWebhookRoutes wires the admission pipeline onto POST /webhook.
// Authentication runs before admission, so a rejected key never consumes a
// rate-limit slot.
func RegisterWebhookRoutes(
	router fiber.Router,
	service WebhookService,
	authenticator *auth.Authenticator,
	limiter ratelimit.RateLimiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) error {
	h, err := NewWebhookHandler(service, logger)
	if err != nil {
		return err
	}

	router.Post("/webhook",
		RequireAPIKey(authenticator, metrics, logger),
		RateLimitByClientIP(limiter, metrics, logger),
		h.HandleWebhook,
	)

	return nil
}

type webhookRequest struct {
	Service string `json:"service"`
	Event   string `json:"event"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	notification, err := parseWebhookBody(c.Body())
	if err != nil {
		return toHTTPError(err)
	}

	ctx := observability.WithCorrelationID(c.Context(), requestCorrelationID(c))

	if _, err := h.service.Accept(ctx, notification); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return toHTTPError(err)
		}
		observability.WithContextLogger(h.logger, ctx).Error("failed to store notification",
			zap.String("service", notification.Service),
			zap.Error(err),
		)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to store notification")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

// parseWebhookBody distinguishes an unparsable body (generic bad request)
// from a well-formed body carrying a wrong-typed field (field-level error).
func parseWebhookBody(body []byte) (*domain.Notification, error) {
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, fmt.Errorf("%w: Invalid type for field '%s'", domain.ErrValidation, typeErr.Field)
		}
		return nil, fmt.Errorf("%w: invalid JSON body", domain.ErrMalformedInput)
	}

	return &domain.Notification{
		Service: strings.TrimSpace(req.Service),
		Event:   strings.TrimSpace(req.Event),
		Error:   req.Error,
		Message: strings.TrimSpace(req.Message),
	}, nil
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return uuid.NewString()
}

func validationDetail(err error) string {
	detail := err.Error()
	if prefix := domain.ErrValidation.Error() + ": "; strings.HasPrefix(detail, prefix) {
		return strings.TrimPrefix(detail, prefix)
	}
	return detail
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, validationDetail(err))
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Notification not found")
	default:
		return err
	}
}
