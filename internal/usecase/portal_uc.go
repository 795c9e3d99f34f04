// File: internal/usecase/portal_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/infra/metrics"
)

// Compile-time check
var _ PortalUseCase = (*portalUC)(nil)

type PortalUseCase interface {
	// Portal returns a billing portal URL for the caller. An empty
	// returnURL falls back to origin + "/profile", then to the configured
	// default.
	Portal(ctx context.Context, userID, returnURL, origin string) (string, error)
}

type portalUC struct {
	profiles   repository.ProfileRepository
	billing    adapter.BillingProvider
	defaultURL string
	log        *zerolog.Logger
}

func NewPortalUseCase(profiles repository.ProfileRepository, billing adapter.BillingProvider, defaultReturnURL string, logger *zerolog.Logger) PortalUseCase {
	return &portalUC{profiles: profiles, billing: billing, defaultURL: defaultReturnURL, log: logger}
}

func (u *portalUC) Portal(ctx context.Context, userID, returnURL, origin string) (string, error) {
	log := logging.With(ctx, u.log)
	if userID == "" {
		return "", domain.ErrUnauthorized
	}

	prof, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		log.Error().Err(err).Msg("portal: profile lookup failed")
		return "", fmt.Errorf("%w: %v", domain.ErrProfileUnavailable, err)
	}
	if !prof.HasCustomer() {
		log.Warn().Msg("portal: no billing customer for user")
		return "", domain.ErrNoBillingCustomer
	}

	target := returnURL
	if target == "" && origin != "" {
		target = strings.TrimRight(origin, "/") + "/profile"
	}
	if target == "" {
		target = u.defaultURL
	}
	if target == "" {
		return "", fmt.Errorf("%w: returnUrl is required", domain.ErrInvalidArgument)
	}

	url, err := u.billing.CreatePortalSession(ctx, prof.CustomerID, target)
	if err != nil {
		metrics.IncPortal("failed")
		return "", err
	}
	metrics.IncPortal("created")
	return url, nil
}
