package model

import "time"

const (
	RemoteStatusActive = "active"
	RemoteStatusAll    = "all"
)

// BillingSubscription is a read-only snapshot of a provider subscription.
type BillingSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CreatedAt        time.Time
	CurrentPeriodEnd time.Time
}

func (s *BillingSubscription) IsActive() bool {
	return s != nil && s.Status == RemoteStatusActive
}

// SyncStatus is the two-valued status written by a manual sync.
func (s *BillingSubscription) SyncStatus() SubscriptionStatus {
	if s.IsActive() {
		return SubscriptionStatusActive
	}
	return SubscriptionStatusCancelled
}

// BillingStatus is the read model exposed to the client.
type BillingStatus struct {
	Status      SubscriptionStatus `json:"status"`
	PlanName    string             `json:"plan_name"`
	IsPro       bool               `json:"is_pro"`
	ExpiresAt   *string            `json:"expires_at"`
	ActivatedAt *string            `json:"activated_at"`
}

func NewBillingStatus(p *Profile) BillingStatus {
	st := BillingStatus{
		Status:   p.EffectiveStatus(),
		PlanName: p.EffectivePlan(),
		IsPro:    p.IsPro(),
	}
	if p != nil && p.ExpiresAt != nil {
		s := ISOTimestamp(*p.ExpiresAt)
		st.ExpiresAt = &s
	}
	if p != nil && p.ActivatedAt != nil {
		s := ISOTimestamp(*p.ActivatedAt)
		st.ActivatedAt = &s
	}
	return st
}
