package model

import (
	"time"

	"venux-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusFree      SubscriptionStatus = "free"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusCancelled, SubscriptionStatusPending, SubscriptionStatusFree:
		return true
	}
	return false
}

const (
	PlanPro  = "PRO"
	PlanFree = "Free"
)

// Profile is the application's record of a user and their paid-tier state.
// Subscription columns are written only by checkout, webhook and sync flows.
type Profile struct {
	ID       string
	Email    string
	FullName string
	WhatsApp string

	Status         SubscriptionStatus
	PlanName       string
	CustomerID     string
	SubscriptionID string
	PriceID        string
	ActivatedAt    *time.Time
	ExpiresAt      *time.Time

	UpdatedAt time.Time
}

func (p *Profile) IsZero() bool { return p == nil || p.ID == "" }

// EffectiveStatus maps an unset or unknown status to free.
func (p *Profile) EffectiveStatus() SubscriptionStatus {
	if p == nil || !p.Status.Valid() {
		return SubscriptionStatusFree
	}
	return p.Status
}

func (p *Profile) EffectivePlan() string {
	if p == nil || p.PlanName == "" {
		return PlanFree
	}
	return p.PlanName
}

func (p *Profile) IsPro() bool { return p.EffectiveStatus() == SubscriptionStatusActive }

func (p *Profile) HasCustomer() bool { return p != nil && p.CustomerID != "" }

// TargetField names the column a profile update is matched on.
type TargetField string

const (
	TargetUserID         TargetField = "id"
	TargetCustomerID     TargetField = "stripe_customer_id"
	TargetSubscriptionID TargetField = "stripe_subscription_id"
)

// ProfileTarget selects the profile rows an update applies to.
type ProfileTarget struct {
	Field TargetField
	Value string
}

func ByUserID(id string) ProfileTarget { return ProfileTarget{Field: TargetUserID, Value: id} }
func ByCustomerID(id string) ProfileTarget {
	return ProfileTarget{Field: TargetCustomerID, Value: id}
}
func BySubscriptionID(id string) ProfileTarget {
	return ProfileTarget{Field: TargetSubscriptionID, Value: id}
}

func (t ProfileTarget) Validate() error {
	switch t.Field {
	case TargetUserID, TargetCustomerID, TargetSubscriptionID:
	default:
		return domain.ErrInvalidArgument
	}
	if t.Value == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// SubscriptionPatch is a partial update of a profile's subscription columns.
// Nil fields are left untouched.
type SubscriptionPatch struct {
	Status         *SubscriptionStatus
	PlanName       *string
	CustomerID     *string
	SubscriptionID *string
	PriceID        *string
	ActivatedAt    *time.Time
	ExpiresAt      *time.Time
}

func (p SubscriptionPatch) IsEmpty() bool {
	return p.Status == nil && p.PlanName == nil && p.CustomerID == nil &&
		p.SubscriptionID == nil && p.PriceID == nil && p.ActivatedAt == nil && p.ExpiresAt == nil
}

// Apply copies the non-nil fields of the patch onto prof.
func (p SubscriptionPatch) Apply(prof *Profile) {
	if p.Status != nil {
		prof.Status = *p.Status
	}
	if p.PlanName != nil {
		prof.PlanName = *p.PlanName
	}
	if p.CustomerID != nil {
		prof.CustomerID = *p.CustomerID
	}
	if p.SubscriptionID != nil {
		prof.SubscriptionID = *p.SubscriptionID
	}
	if p.PriceID != nil {
		prof.PriceID = *p.PriceID
	}
	if p.ActivatedAt != nil {
		t := *p.ActivatedAt
		prof.ActivatedAt = &t
	}
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		prof.ExpiresAt = &t
	}
}

// ActivationPatch is the full "subscription is live" write shared by
// checkout completion and manual sync. customerID may be empty, in which
// case the stored customer id is kept.
func ActivationPatch(sub *BillingSubscription, customerID string) SubscriptionPatch {
	status := SubscriptionStatusActive
	plan := PlanPro
	subID := sub.ID
	priceID := sub.PriceID
	p := SubscriptionPatch{
		Status:         &status,
		PlanName:       &plan,
		SubscriptionID: &subID,
		PriceID:        &priceID,
		ActivatedAt:    utcOrNil(sub.CreatedAt),
		ExpiresAt:      utcOrNil(sub.CurrentPeriodEnd),
	}
	if customerID != "" {
		p.CustomerID = &customerID
	}
	return p
}

// StatusRefreshPatch updates only the status and the expiration timestamp.
// A zero expiresAt leaves the stored expiration alone.
func StatusRefreshPatch(status SubscriptionStatus, expiresAt time.Time) SubscriptionPatch {
	return SubscriptionPatch{Status: &status, ExpiresAt: utcOrNil(expiresAt)}
}

// utcOrNil maps the zero time to nil so a patch never writes year 1.
func utcOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// CancellationPatch drops the profile back to the free plan.
func CancellationPatch() SubscriptionPatch {
	status := SubscriptionStatusCancelled
	plan := PlanFree
	return SubscriptionPatch{Status: &status, PlanName: &plan}
}

// ISOTimestamp renders t the way JavaScript's Date.toISOString does.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FromUnix converts provider epoch seconds to a UTC time.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
