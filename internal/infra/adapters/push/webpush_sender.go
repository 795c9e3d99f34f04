package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"venux-billing/internal/config"
	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
)

var _ adapter.PushSender = (*WebPushSender)(nil)

// WebPushSender delivers VAPID-signed web push notifications.
type WebPushSender struct {
	opts webpush.Options
	log  zerolog.Logger
}

func NewWebPushSender(cfg config.PushConfig, logger *zerolog.Logger) (*WebPushSender, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("push: vapid keys are required")
	}
	return &WebPushSender{
		opts: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             cfg.TTL,
			Urgency:         webpush.UrgencyHigh,
			HTTPClient:      &http.Client{Timeout: 15 * time.Second},
		},
		log: logger.With().Str("adapter", "webpush").Logger(),
	}, nil
}

// Send pushes payload to sub. 404 and 410 from the push service mean the
// device unsubscribed and map to domain.ErrPushSubscriptionGone.
func (s *WebPushSender) Send(ctx context.Context, sub *model.PushSubscription, payload model.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	opts := s.opts
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &opts)
	if err != nil {
		return &domain.ProviderError{Op: "web push", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return domain.ErrPushSubscriptionGone
	case resp.StatusCode >= 400:
		return &domain.ProviderError{
			Op:      "web push",
			Message: fmt.Sprintf("push service responded %d", resp.StatusCode),
		}
	}
	s.log.Debug().Str("subscription_id", sub.ID).Int("status", resp.StatusCode).Msg("push delivered")
	return nil
}
