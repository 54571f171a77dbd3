package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// NotificationQueryService serves read access to the audit trail.
type NotificationQueryService interface {
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
}

type NotificationHandler struct {
	service NotificationQueryService
}

func NewNotificationHandler(service NotificationQueryService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification query service is required")
	}
	return &NotificationHandler{service: service}, nil
}

// RegisterNotificationRoutes exposes the operator-facing query API behind the
// same shared-secret check as the webhook itself.
func RegisterNotificationRoutes(router fiber.Router, service NotificationQueryService, authMiddleware fiber.Handler) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", authMiddleware)
	v1.Get("/notifications", h.ListNotifications)
	v1.Get("/notifications/:id", h.GetNotification)

	return nil
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Service   string    `json:"service"`
	Event     string    `json:"event,omitempty"`
	Error     bool      `json:"error"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil {
		return toHTTPError(fmt.Errorf("%w: id must be an integer", domain.ErrValidation))
	}

	notification, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(notification))
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		data = append(data, toNotificationResponse(&notifications[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if service := strings.TrimSpace(c.Query("service")); service != "" {
		params.Service = &service
	}

	if rawError := strings.TrimSpace(c.Query("error")); rawError != "" {
		errorFlag, err := strconv.ParseBool(rawError)
		if err != nil {
			return repository.ListParams{}, fmt.Errorf("%w: error must be true or false", domain.ErrValidation)
		}
		params.Error = &errorFlag
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:        n.ID,
		Service:   n.Service,
		Event:     n.Event,
		Error:     n.Error,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}
