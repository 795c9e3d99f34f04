// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/infra/metrics"
)

type WebhookOutcome string

const (
	WebhookApplied    WebhookOutcome = "applied"
	WebhookUnmatched  WebhookOutcome = "unmatched"
	WebhookIgnored    WebhookOutcome = "ignored"
	WebhookDuplicate  WebhookOutcome = "duplicate"
	WebhookStoreError WebhookOutcome = "store_error"
	WebhookRejected   WebhookOutcome = "rejected"
)

type WebhookResult struct {
	EventID  string
	Kind     string
	Outcome  WebhookOutcome
	Affected int
}

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Receive verifies a raw delivery and applies it. Errors mean the
	// delivery must be rejected; store failures are reported in the result.
	Receive(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
	// Handle applies an already verified event.
	Handle(ctx context.Context, ev model.SubscriptionEvent) (WebhookResult, error)
}

type webhookUC struct {
	verifier adapter.WebhookVerifier
	billing  adapter.BillingProvider
	profiles repository.ProfileRepository
	dedupe   adapter.EventDeduper
	alerts   adapter.AlertNotifier
	tr       adapter.Translator
	log      *zerolog.Logger
}

// NewWebhookUseCase wires the receiver. dedupe and alerts may be nil.
func NewWebhookUseCase(
	verifier adapter.WebhookVerifier,
	billing adapter.BillingProvider,
	profiles repository.ProfileRepository,
	dedupe adapter.EventDeduper,
	alerts adapter.AlertNotifier,
	tr adapter.Translator,
	logger *zerolog.Logger,
) WebhookUseCase {
	l := logger.With().Str("component", "webhook").Logger()
	return &webhookUC{
		verifier: verifier,
		billing:  billing,
		profiles: profiles,
		dedupe:   dedupe,
		alerts:   alerts,
		tr:       tr,
		log:      &l,
	}
}

func (u *webhookUC) Receive(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := u.verifier.ParseEvent(payload, signature)
	if err != nil {
		metrics.IncWebhookEvent("unknown", string(WebhookRejected))
		u.log.Warn().Err(err).Msg("webhook rejected")
		return WebhookResult{Outcome: WebhookRejected}, err
	}
	return u.Handle(ctx, ev)
}

func (u *webhookUC) Handle(ctx context.Context, ev model.SubscriptionEvent) (WebhookResult, error) {
	ctx = logging.WithEventID(ctx, ev.ID())
	log := logging.With(ctx, u.log)
	res := WebhookResult{EventID: ev.ID(), Kind: ev.Kind()}

	if u.seen(ctx, log, ev.ID()) {
		res.Outcome = WebhookDuplicate
		metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
		log.Info().Str("type", res.Kind).Msg("duplicate delivery acknowledged")
		return res, nil
	}

	var (
		target model.ProfileTarget
		patch  model.SubscriptionPatch
	)
	switch e := ev.(type) {
	case model.CheckoutCompleted:
		if e.SubscriptionID == "" {
			res.Outcome = WebhookRejected
			metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
			return res, fmt.Errorf("%w: checkout session has no subscription", domain.ErrInvalidArgument)
		}
		sub, err := u.billing.GetSubscription(ctx, e.SubscriptionID)
		if err != nil {
			res.Outcome = WebhookRejected
			metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
			log.Error().Err(err).Str("subscription", e.SubscriptionID).Msg("fetch subscription failed")
			return res, err
		}
		customerID := e.CustomerID
		if customerID == "" {
			customerID = sub.CustomerID
		}
		target = e.Target()
		if target.Value == "" {
			target = model.ByCustomerID(customerID)
		}
		patch = model.ActivationPatch(sub, customerID)

	case model.SubscriptionUpdated:
		target = model.BySubscriptionID(e.SubscriptionID)
		patch = model.StatusRefreshPatch(e.LocalStatus(), e.CurrentPeriodEnd)

	case model.SubscriptionDeleted:
		target = model.BySubscriptionID(e.SubscriptionID)
		patch = model.CancellationPatch()

	case model.IgnoredEvent:
		res.Outcome = WebhookIgnored
		metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
		log.Debug().Str("type", e.Type).Msg("event ignored")
		u.remember(ctx, log, ev.ID())
		return res, nil

	default:
		return res, fmt.Errorf("%w: %T", domain.ErrUnknownEvent, ev)
	}

	if err := target.Validate(); err != nil {
		res.Outcome = WebhookUnmatched
		metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
		log.Warn().Str("type", res.Kind).Msg("event carries no usable profile reference")
		return res, nil
	}

	ids, err := u.profiles.ApplySubscription(ctx, repository.NoTX, target, patch)
	if err != nil {
		res.Outcome = WebhookStoreError
		metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
		metrics.IncProfileWriteFailure("webhook")
		log.Error().Err(err).Str("type", res.Kind).Str("target", string(target.Field)).Msg("profile update failed")
		u.alert(ctx, log, res, err)
		return res, nil
	}

	res.Affected = len(ids)
	if len(ids) == 0 {
		res.Outcome = WebhookUnmatched
		log.Warn().Str("type", res.Kind).Str("target", string(target.Field)).Msg("no profile matched event")
	} else {
		res.Outcome = WebhookApplied
		log.Info().Str("type", res.Kind).Strs("profiles", ids).Msg("subscription state applied")
	}
	metrics.IncWebhookEvent(res.Kind, string(res.Outcome))
	u.remember(ctx, log, ev.ID())
	return res, nil
}

func (u *webhookUC) seen(ctx context.Context, log *zerolog.Logger, eventID string) bool {
	if u.dedupe == nil || eventID == "" {
		return false
	}
	ok, err := u.dedupe.Seen(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Msg("dedupe lookup failed")
		return false
	}
	return ok
}

func (u *webhookUC) remember(ctx context.Context, log *zerolog.Logger, eventID string) {
	if u.dedupe == nil || eventID == "" {
		return
	}
	if err := u.dedupe.Remember(ctx, eventID); err != nil {
		log.Warn().Err(err).Msg("dedupe remember failed")
	}
}

func (u *webhookUC) alert(ctx context.Context, log *zerolog.Logger, res WebhookResult, cause error) {
	if u.alerts == nil {
		return
	}
	text := u.tr.T(keyAlertWriteFailure, res.Kind, res.EventID, cause.Error())
	if err := u.alerts.Alert(ctx, text); err != nil {
		log.Warn().Err(err).Msg("ops alert failed")
	}
}
