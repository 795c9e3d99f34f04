package model

import "time"

// Event types the billing flow reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// SubscriptionEvent is a verified provider notification. The set of
// implementations is closed; consumers switch on the concrete type.
type SubscriptionEvent interface {
	ID() string
	Kind() string
	subscriptionEvent()
}

// CheckoutCompleted is emitted when a hosted checkout session finished.
// UserRef carries the client reference id set when the session was opened.
type CheckoutCompleted struct {
	EventID        string
	CustomerID     string
	SubscriptionID string
	UserRef        string
}

type SubscriptionUpdated struct {
	EventID          string
	SubscriptionID   string
	CustomerID       string
	RemoteStatus     string
	CurrentPeriodEnd time.Time
}

type SubscriptionDeleted struct {
	EventID        string
	SubscriptionID string
	CustomerID     string
}

// IgnoredEvent is any event type this service does not act on.
type IgnoredEvent struct {
	EventID string
	Type    string
}

func (e CheckoutCompleted) ID() string   { return e.EventID }
func (e SubscriptionUpdated) ID() string { return e.EventID }
func (e SubscriptionDeleted) ID() string { return e.EventID }
func (e IgnoredEvent) ID() string        { return e.EventID }

func (CheckoutCompleted) Kind() string   { return EventCheckoutCompleted }
func (SubscriptionUpdated) Kind() string { return EventSubscriptionUpdated }
func (SubscriptionDeleted) Kind() string { return EventSubscriptionDeleted }
func (e IgnoredEvent) Kind() string      { return e.Type }

func (CheckoutCompleted) subscriptionEvent()   {}
func (SubscriptionUpdated) subscriptionEvent() {}
func (SubscriptionDeleted) subscriptionEvent() {}
func (IgnoredEvent) subscriptionEvent()        {}

// Target picks the profile a completed checkout belongs to: the client
// reference when present, otherwise the billing customer.
func (e CheckoutCompleted) Target() ProfileTarget {
	if e.UserRef != "" {
		return ByUserID(e.UserRef)
	}
	return ByCustomerID(e.CustomerID)
}

// LocalStatus maps the provider status onto the profile status column.
func (e SubscriptionUpdated) LocalStatus() SubscriptionStatus {
	if e.RemoteStatus == RemoteStatusActive {
		return SubscriptionStatusActive
	}
	return SubscriptionStatusPending
}
