// File: internal/usecase/status_uc.go
package usecase

import (
	"context"
	"errors"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

type StatusUseCase interface {
	Status(ctx context.Context, userID string) (model.BillingStatus, error)
}

type statusUC struct {
	profiles repository.ProfileRepository
}

func NewStatusUseCase(profiles repository.ProfileRepository) StatusUseCase {
	return &statusUC{profiles: profiles}
}

// Status reports the caller's paid tier. A missing profile reads as free.
func (u *statusUC) Status(ctx context.Context, userID string) (model.BillingStatus, error) {
	if userID == "" {
		return model.BillingStatus{}, domain.ErrUnauthorized
	}
	prof, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if isNotFound(err) {
		return model.NewBillingStatus(nil), nil
	}
	if err != nil {
		return model.BillingStatus{}, err
	}
	return model.NewBillingStatus(prof), nil
}

// isNotFound reports a missing profile row.
func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
