package service

import (
	"context"
	"fmt"

	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/observability"
	"github.com/mkarpenko/hookrelay/internal/repository"
	"go.uber.org/zap"
)

// NotificationService orchestrates the accepted-event path: validate,
// persist for audit, then forward best-effort.
type NotificationService struct {
	notifications repository.NotificationRepository
	deliverer     Deliverer
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	deliverer Deliverer,
	logger *zap.Logger,
) (*NotificationService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		notifications: notifications,
		deliverer:     deliverer,
		logger:        logger,
	}, nil
}

// Accept validates and persists the event, then forwards it. Persistence is
// the contract with the caller: a store failure aborts the request, while a
// delivery failure is logged and swallowed because the durable record already
// exists. Delivery runs on a context detached from the client connection so
// a disconnect cannot abandon in-flight retries.
func (s *NotificationService) Accept(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if notification == nil {
		return nil, fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}

	if err := notification.Validate(); err != nil {
		return nil, err
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	result := s.deliverer.Deliver(context.WithoutCancel(ctx), *notification)
	if !result.Delivered() {
		log := observability.WithContextLogger(s.logger, ctx)
		log.Warn("notification stored but not delivered",
			zap.Int64("notificationId", notification.ID),
			zap.String("outcome", string(result.Outcome)),
			zap.Int("attempts", len(result.Attempts)),
		)
	}

	return notification, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.notifications.GetByID(ctx, id)
}

func (s *NotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.notifications.List(ctx, params)
}
