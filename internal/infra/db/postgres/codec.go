package postgres

import (
	"venux-billing/internal/domain/model"
)

// The profiles table is shared with the PWA, which reads the Portuguese
// values below directly.
const (
	dbStatusActive    = "ativo"
	dbStatusCancelled = "cancelado"
	dbStatusPending   = "pendente"
	dbStatusFree      = "free"

	dbPlanFree = "Gratuito"
)

func statusToDB(s model.SubscriptionStatus) string {
	switch s {
	case model.SubscriptionStatusActive:
		return dbStatusActive
	case model.SubscriptionStatusCancelled:
		return dbStatusCancelled
	case model.SubscriptionStatusPending:
		return dbStatusPending
	default:
		return dbStatusFree
	}
}

func statusFromDB(s *string) model.SubscriptionStatus {
	if s == nil {
		return model.SubscriptionStatusFree
	}
	switch *s {
	case dbStatusActive, string(model.SubscriptionStatusActive):
		return model.SubscriptionStatusActive
	case dbStatusCancelled, string(model.SubscriptionStatusCancelled):
		return model.SubscriptionStatusCancelled
	case dbStatusPending, string(model.SubscriptionStatusPending):
		return model.SubscriptionStatusPending
	default:
		return model.SubscriptionStatusFree
	}
}

func planToDB(p string) string {
	if p == model.PlanFree {
		return dbPlanFree
	}
	return p
}

func planFromDB(p *string) string {
	if p == nil || *p == "" || *p == dbPlanFree {
		return model.PlanFree
	}
	return *p
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
