// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"venux-billing/internal/config"
	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
)

var _ adapter.BillingProvider = (*StripeGateway)(nil)

// StripeGateway talks to the Stripe API on behalf of the billing use cases.
type StripeGateway struct {
	sc  *client.API
	log zerolog.Logger
}

// NewStripeGateway builds an API client. cfg.BaseURL points the client at
// another host (stripe-mock, httptest) when set.
func NewStripeGateway(cfg config.StripeConfig, logger *zerolog.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	var backends *stripe.Backends
	if cfg.BaseURL != "" {
		httpClient := &http.Client{Timeout: 20 * time.Second}
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL:               stripe.String(cfg.BaseURL),
				HTTPClient:        httpClient,
				MaxNetworkRetries: stripe.Int64(0),
				LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
			}),
		}
		backends.Connect = backends.API
		backends.Uploads = backends.API
	}
	return &StripeGateway{
		sc:  client.New(cfg.SecretKey, backends),
		log: logger.With().Str("adapter", "stripe").Logger(),
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// CustomerExists reports false for unknown and deleted customers.
func (g *StripeGateway) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := g.sc.Customers.Get(customerID, params)
	if err != nil {
		if isResourceMissing(err) {
			return false, nil
		}
		return false, wrapStripeErr("retrieve customer", err)
	}
	return !c.Deleted, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, req adapter.CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.AddMetadata("supabaseUUID", req.UserID)
	c, err := g.sc.Customers.New(params)
	if err != nil {
		return "", wrapStripeErr("create customer", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req adapter.CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(req.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.UserRef != "" {
		params.ClientReferenceID = stripe.String(req.UserRef)
		params.AddMetadata("user_id", req.UserRef)
	}
	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", wrapStripeErr("create checkout session", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := g.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", wrapStripeErr("create portal session", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*model.BillingSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := g.sc.Subscriptions.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapStripeErr("retrieve subscription", err)
	}
	return toBillingSubscription(s), nil
}

// LatestSubscription returns the newest subscription for customerID, either
// active only or in any status. No subscription yields (nil, nil).
func (g *StripeGateway) LatestSubscription(ctx context.Context, customerID string, activeOnly bool) (*model.BillingSubscription, error) {
	status := model.RemoteStatusAll
	if activeOnly {
		status = model.RemoteStatusActive
	}
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(status),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := g.sc.Subscriptions.List(params)
	if it.Next() {
		return toBillingSubscription(it.Subscription()), nil
	}
	if err := it.Err(); err != nil {
		if isResourceMissing(err) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, wrapStripeErr("list subscriptions", err)
	}
	return nil, nil
}

func toBillingSubscription(s *stripe.Subscription) *model.BillingSubscription {
	out := &model.BillingSubscription{
		ID:        s.ID,
		Status:    string(s.Status),
		CreatedAt: model.FromUnix(s.Created),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			out.CurrentPeriodEnd = model.FromUnix(item.CurrentPeriodEnd)
		}
	}
	return out
}

func isResourceMissing(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && (se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound)
}

// wrapStripeErr keeps the provider's message so it can be shown to the caller.
func wrapStripeErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = fmt.Sprintf("%s: %s", op, se.Type)
		}
		return &domain.ProviderError{Op: op, Message: msg, Err: err}
	}
	return &domain.ProviderError{Op: op, Err: err}
}
