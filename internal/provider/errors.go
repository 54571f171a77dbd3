package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mkarpenko/hookrelay/internal/domain"
)

// ProviderError is a failed call to the messaging API. Transient marks
// failures worth retrying (rate limiting, server errors, flaky transport);
// anything else will fail identically on the next attempt.
type ProviderError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString("telegram send failed")
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Outcome classifies a send error as the attempt outcome the retry loop
// records: nil is success, transient failures are retried, everything else
// is final. A canceled context is final because the caller gave up, while a
// deadline only condemns the single attempt.
func Outcome(err error) domain.AttemptOutcome {
	switch {
	case err == nil:
		return domain.AttemptSuccess
	case errors.Is(err, context.Canceled):
		return domain.AttemptPermanentFailure
	case errors.Is(err, context.DeadlineExceeded):
		return domain.AttemptTransientFailure
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.Transient {
			return domain.AttemptTransientFailure
		}
		return domain.AttemptPermanentFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return domain.AttemptTransientFailure
	}

	return domain.AttemptPermanentFailure
}
