package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockBusy           = errors.New("lock is held by another worker")

	// Billing
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrNoBillingCustomer  = errors.New("billing customer not found, subscribe to a plan first")
	ErrProfileUnavailable = errors.New("could not load the user profile")
	ErrCustomerNotFound   = errors.New("billing customer does not exist at the provider")
	ErrSyncInProgress     = errors.New("a subscription sync is already running for this user")
	ErrRateLimited        = errors.New("too many requests")
	ErrUnknownEvent       = errors.New("unknown subscription event")

	// Accessor
	ErrUnknownWhatsApp      = errors.New("no user with this whatsapp number")
	ErrSubscriptionInactive = errors.New("subscription is not active")

	// Push
	ErrPushSubscriptionGone = errors.New("push subscription is gone")
)

// ProviderError is a failure reported by an external billing or push
// provider. Message is safe to show to the caller.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *ProviderError) Unwrap() error { return e.Err }
