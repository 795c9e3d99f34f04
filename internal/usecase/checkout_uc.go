// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/infra/metrics"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID string
	Email  string
}

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// Checkout opens a hosted subscription checkout for priceID and returns
	// its URL. The caller is sent back to returnURL with status=success or
	// status=cancel.
	Checkout(ctx context.Context, caller Caller, priceID, returnURL string) (string, error)
}

type checkoutUC struct {
	profiles repository.ProfileRepository
	billing  adapter.BillingProvider
	txm      repository.TransactionManager
	allowed  map[string]struct{}
	log      *zerolog.Logger
}

// NewCheckoutUseCase builds the checkout initiator. An empty allowedPrices
// accepts any price id. With txm set, the profile row stays locked while a
// missing customer is created, so parallel checkouts share one customer.
func NewCheckoutUseCase(
	profiles repository.ProfileRepository,
	billing adapter.BillingProvider,
	txm repository.TransactionManager,
	allowedPrices []string,
	logger *zerolog.Logger,
) CheckoutUseCase {
	allowed := make(map[string]struct{}, len(allowedPrices))
	for _, p := range allowedPrices {
		if p = strings.TrimSpace(p); p != "" {
			allowed[p] = struct{}{}
		}
	}
	return &checkoutUC{profiles: profiles, billing: billing, txm: txm, allowed: allowed, log: logger}
}

func (u *checkoutUC) Checkout(ctx context.Context, caller Caller, priceID, returnURL string) (string, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "CheckoutUC.Checkout")()

	if caller.UserID == "" {
		return "", domain.ErrUnauthorized
	}
	if priceID == "" || returnURL == "" {
		return "", fmt.Errorf("%w: priceId and returnUrl are required", domain.ErrInvalidArgument)
	}
	if len(u.allowed) > 0 {
		if _, ok := u.allowed[priceID]; !ok {
			return "", fmt.Errorf("%w: unknown price %q", domain.ErrInvalidArgument, priceID)
		}
	}
	successURL, err := withStatus(returnURL, "success")
	if err != nil {
		return "", err
	}
	cancelURL, err := withStatus(returnURL, "cancel")
	if err != nil {
		return "", err
	}

	var customerID string
	ensure := func(ctx context.Context, tx repository.Tx) error {
		id, err := u.ensureCustomer(ctx, tx, caller)
		customerID = id
		return err
	}
	if u.txm != nil {
		err = u.txm.WithTx(ctx, pgx.TxOptions{}, ensure)
	} else {
		err = ensure(ctx, repository.NoTX)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrProfileUnavailable) {
			metrics.IncCheckout("failed")
		}
		return "", err
	}

	sessionURL, err := u.billing.CreateCheckoutSession(ctx, adapter.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserRef:    caller.UserID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		metrics.IncCheckout("failed")
		return "", err
	}
	metrics.IncCheckout("created")
	return sessionURL, nil
}

// ensureCustomer returns the caller's usable billing customer, creating and
// storing one when the profile has none or the stored one is gone.
func (u *checkoutUC) ensureCustomer(ctx context.Context, tx repository.Tx, caller Caller) (string, error) {
	log := logging.With(ctx, u.log)

	prof, err := u.profiles.FindByID(ctx, tx, caller.UserID)
	if err != nil {
		log.Error().Err(err).Msg("checkout: profile lookup failed")
		return "", fmt.Errorf("%w: %v", domain.ErrProfileUnavailable, err)
	}

	customerID := prof.CustomerID
	if customerID != "" {
		ok, err := u.billing.CustomerExists(ctx, customerID)
		if err != nil || !ok {
			// stale id: recreate below
			log.Warn().Err(err).Str("customer", customerID).Msg("checkout: stored customer is unusable, recreating")
			customerID = ""
		}
	}
	if customerID != "" {
		return customerID, nil
	}

	email := caller.Email
	if email == "" {
		email = prof.Email
	}
	customerID, err = u.billing.CreateCustomer(ctx, adapter.CustomerRequest{Email: email, UserID: caller.UserID})
	if err != nil {
		return "", err
	}
	if err := u.profiles.SetCustomerID(ctx, tx, caller.UserID, customerID); err != nil {
		return "", fmt.Errorf("save customer id: %w", err)
	}
	log.Info().Str("customer", customerID).Msg("checkout: billing customer created")
	return customerID, nil
}

// withStatus sets the status query parameter on raw, keeping any existing
// query values.
func withStatus(raw, status string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: returnUrl must be an absolute URL", domain.ErrInvalidArgument)
	}
	q := u.Query()
	q.Set("status", status)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
