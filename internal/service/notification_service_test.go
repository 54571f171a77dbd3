package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkarpenko/hookrelay/internal/domain"
	"github.com/mkarpenko/hookrelay/internal/repository"
)

type stubNotificationRepo struct {
	createFn func(ctx context.Context, n *domain.Notification) error
	getFn    func(ctx context.Context, id int64) (*domain.Notification, error)
	listFn   func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
}

func (s *stubNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return s.createFn(ctx, n)
}

func (s *stubNotificationRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	return s.getFn(ctx, id)
}

func (s *stubNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	return s.listFn(ctx, params)
}

type stubDeliverer struct {
	calls     int
	delivered []domain.Notification
	result    DeliveryResult
}

func (s *stubDeliverer) Deliver(ctx context.Context, n domain.Notification) DeliveryResult {
	s.calls++
	s.delivered = append(s.delivered, n)
	return s.result
}

func TestAcceptPersistsThenDelivers(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{
		createFn: func(ctx context.Context, n *domain.Notification) error {
			n.ID = 7
			n.CreatedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			return nil
		},
	}
	deliverer := &stubDeliverer{result: DeliveryResult{Outcome: domain.AttemptSuccess}}

	svc, err := NewNotificationService(repo, deliverer, nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	created, err := svc.Accept(context.Background(), &domain.Notification{Service: "MyApp", Message: "hello"})
	if err != nil {
		t.Fatalf("Accept() unexpected error: %v", err)
	}

	if created.ID != 7 {
		t.Fatalf("ID = %d, want 7", created.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be assigned by the store")
	}
	if deliverer.calls != 1 {
		t.Fatalf("deliverer calls = %d, want 1", deliverer.calls)
	}
	// Delivery sees the persisted record, id included.
	if deliverer.delivered[0].ID != 7 {
		t.Fatalf("delivered ID = %d, want 7", deliverer.delivered[0].ID)
	}
}

func TestAcceptRejectsInvalidNotification(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{
		createFn: func(ctx context.Context, n *domain.Notification) error {
			t.Fatal("Create must not be called for invalid input")
			return nil
		},
	}
	deliverer := &stubDeliverer{}

	svc, err := NewNotificationService(repo, deliverer, nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	_, err = svc.Accept(context.Background(), &domain.Notification{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if deliverer.calls != 0 {
		t.Fatal("deliverer must not be called for invalid input")
	}
}

func TestAcceptStoreFailureIsFatal(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk full")
	repo := &stubNotificationRepo{
		createFn: func(ctx context.Context, n *domain.Notification) error {
			return storeErr
		},
	}
	deliverer := &stubDeliverer{}

	svc, err := NewNotificationService(repo, deliverer, nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	_, err = svc.Accept(context.Background(), &domain.Notification{Service: "MyApp", Message: "hello"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want wrapped store error", err)
	}
	if deliverer.calls != 0 {
		t.Fatal("delivery must not be attempted when persistence failed")
	}
}

func TestAcceptSucceedsDespiteDeliveryFailure(t *testing.T) {
	t.Parallel()

	repo := &stubNotificationRepo{
		createFn: func(ctx context.Context, n *domain.Notification) error {
			n.ID = 8
			return nil
		},
	}
	deliverer := &stubDeliverer{
		result: DeliveryResult{
			Outcome: domain.AttemptPermanentFailure,
			Attempts: []domain.DeliveryAttempt{
				{AttemptNumber: 1, Outcome: domain.AttemptTransientFailure},
				{AttemptNumber: 2, Outcome: domain.AttemptTransientFailure},
				{AttemptNumber: 3, Outcome: domain.AttemptTransientFailure},
			},
		},
	}

	svc, err := NewNotificationService(repo, deliverer, nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	created, err := svc.Accept(context.Background(), &domain.Notification{Service: "MyApp", Message: "hello"})
	if err != nil {
		t.Fatalf("Accept() must succeed once the record is durable, got %v", err)
	}
	if created.ID != 8 {
		t.Fatalf("ID = %d, want 8", created.ID)
	}
	if deliverer.calls != 1 {
		t.Fatalf("deliverer calls = %d, want 1", deliverer.calls)
	}
}
