package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/observability"
	"github.com/mkarpenko/hookrelay/internal/provider"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts   = 3
	defaultBaseDelay     = 500 * time.Millisecond
	maxDeliveryDelay     = 10 * time.Second
	maxDeliveryJitterMil = 100
)

// DeliveryResult is the final outcome of a delivery, with the trail of
// attempts that produced it.
type DeliveryResult struct {
	Outcome  domain.AttemptOutcome
	Attempts []domain.DeliveryAttempt
}

func (r DeliveryResult) Delivered() bool {
	return r.Outcome == domain.AttemptSuccess
}

// Deliverer forwards a persisted notification to the external messaging API.
type Deliverer interface {
	Deliver(ctx context.Context, notification domain.Notification) DeliveryResult
}

// DeliveryService drives the bounded retry loop around the provider:
// exponential backoff between attempts, retries only for transient failures.
type DeliveryService struct {
	provider    provider.Provider
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	randIntn    func(n int) int
}

var _ Deliverer = (*DeliveryService)(nil)

func NewDeliveryService(p provider.Provider, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) (*DeliveryService, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		provider:    p,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDeliveryDelay,
		now:         time.Now,
		sleep:       sleepWithContext,
		randIntn:    rand.Intn,
	}, nil
}

func (s *DeliveryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Deliver attempts to forward the notification up to maxAttempts times. The
// already-persisted record is never rolled back: a failed delivery is
// reported to the operator through logs and metrics only.
func (s *DeliveryService) Deliver(ctx context.Context, notification domain.Notification) DeliveryResult {
	if ctx == nil {
		ctx = context.Background()
	}

	log := observability.WithContextLogger(s.logger, ctx).With(zap.Int64("notificationId", notification.ID))
	attempts := make([]domain.DeliveryAttempt, 0, s.maxAttempts)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sendStart := s.now()
		resp, err := s.provider.Send(ctx, notification)
		if s.metrics != nil {
			s.metrics.ObserveDeliveryAttemptDuration(s.now().Sub(sendStart))
		}

		if err == nil {
			attempts = append(attempts, domain.DeliveryAttempt{
				AttemptNumber: attempt,
				Outcome:       domain.AttemptSuccess,
			})
			if s.metrics != nil {
				s.metrics.IncDeliverySent()
			}
			log.Info("notification delivered",
				zap.Int("attempts", attempt),
				zap.String("providerMessageId", providerMessageID(resp)),
			)
			return DeliveryResult{Outcome: domain.AttemptSuccess, Attempts: attempts}
		}

		if provider.Outcome(err) == domain.AttemptPermanentFailure {
			attempts = append(attempts, domain.DeliveryAttempt{
				AttemptNumber: attempt,
				Outcome:       domain.AttemptPermanentFailure,
				Err:           err,
			})
			if s.metrics != nil {
				s.metrics.IncDeliveryFailed("permanent_error")
			}
			log.Error("notification delivery failed permanently",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return DeliveryResult{Outcome: domain.AttemptPermanentFailure, Attempts: attempts}
		}

		attempts = append(attempts, domain.DeliveryAttempt{
			AttemptNumber: attempt,
			Outcome:       domain.AttemptTransientFailure,
			Err:           err,
		})
		log.Warn("notification delivery attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < s.maxAttempts {
			if s.metrics != nil {
				s.metrics.IncDeliveryRetry()
			}
			if sleepErr := s.sleep(ctx, s.retryDelay(attempt)); sleepErr != nil {
				log.Warn("delivery retry wait aborted", zap.Error(sleepErr))
				break
			}
		}
	}

	if s.metrics != nil {
		s.metrics.IncDeliveryFailed("retry_exhausted")
	}
	log.Error("notification delivery failed after exhausting retries",
		zap.Int("attempts", len(attempts)),
	)
	return DeliveryResult{Outcome: domain.AttemptPermanentFailure, Attempts: attempts}
}

func (s *DeliveryService) retryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := s.baseDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= s.maxDelay {
			delay = s.maxDelay
			break
		}
	}

	if s.randIntn != nil && maxDeliveryJitterMil > 0 {
		delay += time.Duration(s.randIntn(maxDeliveryJitterMil+1)) * time.Millisecond
	}

	// The cap bounds the final wait, jitter included.
	if delay > s.maxDelay {
		delay = s.maxDelay
	}

	return delay
}

func providerMessageID(resp *provider.ProviderResponse) string {
	if resp == nil {
		return ""
	}
	return resp.MessageID
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
