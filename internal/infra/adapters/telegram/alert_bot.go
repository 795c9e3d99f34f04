package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"venux-billing/internal/config"
	"venux-billing/internal/domain/ports/adapter"
)

var _ adapter.AlertNotifier = (*AlertBot)(nil)

// telegram caps message text at 4096 characters
const maxMessageLen = 4096

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertBot posts operator alerts to a fixed set of Telegram chats.
type AlertBot struct {
	bot     messageSender
	chatIDs []int64
	log     zerolog.Logger
}

func NewAlertBot(cfg config.AlertConfig, logger *zerolog.Logger) (*AlertBot, error) {
	if cfg.TelegramToken == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("no alert chat ids configured")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newAlertBot(bot, cfg.ChatIDs, logger), nil
}

func newAlertBot(bot messageSender, chatIDs []int64, logger *zerolog.Logger) *AlertBot {
	return &AlertBot{
		bot:     bot,
		chatIDs: chatIDs,
		log:     logger.With().Str("adapter", "telegram_alert").Logger(),
	}
}

// Alert sends text to every configured chat. Delivery keeps going past a
// failed chat; the joined error is returned.
func (a *AlertBot) Alert(ctx context.Context, text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}
	var errs []error
	for _, id := range a.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := a.bot.Send(msg); err != nil {
			a.log.Error().Err(err).Int64("chat_id", id).Msg("alert delivery failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

var _ adapter.AlertNotifier = (*NoopAlerter)(nil)

// NoopAlerter logs alerts instead of sending them, for local runs without a
// bot token.
type NoopAlerter struct {
	log zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	return &NoopAlerter{log: logger.With().Str("adapter", "noop_alert").Logger()}
}

func (n *NoopAlerter) Alert(ctx context.Context, text string) error {
	n.log.Warn().Str("alert", text).Msg("alert (not delivered)")
	return nil
}
