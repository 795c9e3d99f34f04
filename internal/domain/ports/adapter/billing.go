package adapter

import (
	"context"

	"venux-billing/internal/domain/model"
)

// CustomerRequest describes a billing customer to create. UserID is stored
// in the provider's metadata so the customer can be traced back.
type CustomerRequest struct {
	Email  string
	UserID string
}

// CheckoutRequest opens a hosted subscription checkout.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserRef    string
	SuccessURL string
	CancelURL  string
}

// BillingProvider is the hex port for the payments provider.
type BillingProvider interface {
	Name() string

	// CustomerExists reports false for customers that are missing or deleted.
	CustomerExists(ctx context.Context, customerID string) (bool, error)
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	// CreateCheckoutSession returns the hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*model.BillingSubscription, error)
	// LatestSubscription returns the most recent subscription of the
	// customer, restricted to active ones when activeOnly is set. It returns
	// (nil, nil) when there is none and domain.ErrCustomerNotFound when the
	// customer itself is unknown.
	LatestSubscription(ctx context.Context, customerID string, activeOnly bool) (*model.BillingSubscription, error)
}

// WebhookVerifier authenticates a raw webhook delivery and decodes it.
type WebhookVerifier interface {
	// ParseEvent returns domain.ErrInvalidSignature when the signature does
	// not match the payload.
	ParseEvent(payload []byte, signature string) (model.SubscriptionEvent, error)
}

// EventDeduper remembers processed webhook event ids.
type EventDeduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}
