package provider

import (
	"context"

	"github.com/mkarpenko/hookrelay/internal/domain"
)

// Provider is the outbound message delivery port.
type Provider interface {
	Send(ctx context.Context, notification domain.Notification) (*ProviderResponse, error)
}

// ProviderResponse stores provider call metadata for logging.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
