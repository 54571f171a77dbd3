package domain

// AttemptOutcome classifies a single delivery attempt.
type AttemptOutcome string

const (
	AttemptSuccess          AttemptOutcome = "SUCCESS"
	AttemptTransientFailure AttemptOutcome = "TRANSIENT_FAILURE"
	AttemptPermanentFailure AttemptOutcome = "PERMANENT_FAILURE"
)

// DeliveryAttempt describes one try at forwarding a notification. Attempts
// live only for the duration of a request and are never persisted.
type DeliveryAttempt struct {
	AttemptNumber int
	Outcome       AttemptOutcome
	Err           error
}
