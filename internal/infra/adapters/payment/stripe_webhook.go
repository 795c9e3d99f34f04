package payment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
)

var _ adapter.WebhookVerifier = (*StripeWebhook)(nil)

// StripeWebhook verifies Stripe-Signature headers and decodes the events the
// billing flow understands.
type StripeWebhook struct {
	secret        string
	allowUnsigned bool
	log           zerolog.Logger
}

// NewStripeWebhook returns a verifier for secret. With an empty secret,
// deliveries are rejected unless allowUnsigned is set.
func NewStripeWebhook(secret string, allowUnsigned bool, logger *zerolog.Logger) *StripeWebhook {
	return &StripeWebhook{
		secret:        secret,
		allowUnsigned: allowUnsigned,
		log:           logger.With().Str("adapter", "stripe_webhook").Logger(),
	}
}

func (w *StripeWebhook) ParseEvent(payload []byte, signature string) (model.SubscriptionEvent, error) {
	var (
		event stripe.Event
		err   error
	)
	switch {
	case w.secret != "":
		event, err = webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
	case w.allowUnsigned:
		w.log.Warn().Msg("webhook secret not configured, accepting unsigned event")
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
	default:
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}
	return decodeEvent(&event)
}

// decodeEvent maps a verified Stripe event onto the closed set of
// subscription events.
func decodeEvent(event *stripe.Event) (model.SubscriptionEvent, error) {
	var raw []byte
	if event.Data != nil {
		raw = event.Data.Raw
	}
	switch string(event.Type) {
	case model.EventCheckoutCompleted:
		var s stripeCheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode checkout.session: %v", domain.ErrInvalidArgument, err)
		}
		ref := s.ClientReference
		if ref == "" {
			ref = s.Metadata["user_id"]
		}
		return model.CheckoutCompleted{
			EventID:        event.ID,
			CustomerID:     string(s.Customer),
			SubscriptionID: string(s.Subscription),
			UserRef:        ref,
		}, nil
	case model.EventSubscriptionUpdated:
		var s stripeSubscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", domain.ErrInvalidArgument, err)
		}
		out := model.SubscriptionUpdated{
			EventID:        event.ID,
			SubscriptionID: s.ID,
			CustomerID:     string(s.Customer),
			RemoteStatus:   s.Status,
		}
		if end := s.periodEnd(); end > 0 {
			out.CurrentPeriodEnd = model.FromUnix(end)
		}
		return out, nil
	case model.EventSubscriptionDeleted:
		var s stripeSubscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", domain.ErrInvalidArgument, err)
		}
		return model.SubscriptionDeleted{
			EventID:        event.ID,
			SubscriptionID: s.ID,
			CustomerID:     string(s.Customer),
		}, nil
	default:
		return model.IgnoredEvent{EventID: event.ID, Type: string(event.Type)}, nil
	}
}

type stripeCheckoutSession struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	Customer        expandableID      `json:"customer"`
	Subscription    expandableID      `json:"subscription"`
	ClientReference string            `json:"client_reference_id"`
	Metadata        map[string]string `json:"metadata"`
}

type stripeSubscription struct {
	ID               string       `json:"id"`
	Customer         expandableID `json:"customer"`
	Status           string       `json:"status"`
	CurrentPeriodEnd int64        `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd reads the legacy top-level field first, then the first item.
func (s stripeSubscription) periodEnd() int64 {
	if s.CurrentPeriodEnd > 0 {
		return s.CurrentPeriodEnd
	}
	if len(s.Items.Data) > 0 {
		return s.Items.Data[0].CurrentPeriodEnd
	}
	return 0
}

// expandableID accepts either an id string or an expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}
