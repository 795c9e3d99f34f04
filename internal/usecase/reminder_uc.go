// File: internal/usecase/reminder_uc.go
package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/metrics"
	"venux-billing/internal/infra/worker"
)

type DispatchReport struct {
	Reminders int
	Sent      int
	Gone      int
	Failed    int
	Notified  int
}

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

type ReminderUseCase interface {
	// DispatchDue pushes a notification to every device of every user with
	// a pending reminder due by the end of now's day. A reminder is pushed
	// at most once per local day unless a delivery failed.
	DispatchDue(ctx context.Context, now time.Time) (DispatchReport, error)
}

type ReminderOptions struct {
	Location *time.Location
	Batch    int
	ClickURL string
}

type reminderUC struct {
	reminders repository.ReminderRepository
	devices   repository.PushSubscriptionRepository
	sender    adapter.PushSender
	pool      *worker.Pool
	tr        adapter.Translator
	opts      ReminderOptions
	log       *zerolog.Logger
}

func NewReminderUseCase(
	reminders repository.ReminderRepository,
	devices repository.PushSubscriptionRepository,
	sender adapter.PushSender,
	pool *worker.Pool,
	tr adapter.Translator,
	opts ReminderOptions,
	logger *zerolog.Logger,
) ReminderUseCase {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Batch <= 0 {
		opts.Batch = 500
	}
	l := logger.With().Str("component", "reminders").Logger()
	return &reminderUC{
		reminders: reminders,
		devices:   devices,
		sender:    sender,
		pool:      pool,
		tr:        tr,
		opts:      opts,
		log:       &l,
	}
}

func (u *reminderUC) DispatchDue(ctx context.Context, now time.Time) (DispatchReport, error) {
	var (
		rep DispatchReport
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	loc := u.opts.Location
	due, err := u.reminders.ListDuePending(ctx, repository.NoTX,
		model.EndOfDay(now, loc), model.StartOfDay(now, loc), u.opts.Batch)
	if err != nil {
		return rep, err
	}
	rep.Reminders = len(due)
	u.log.Info().Int("count", len(due)).Msg("pending reminders due")

	var users []string
	byUser := make(map[string][]*model.Reminder)
	for _, r := range due {
		if _, ok := byUser[r.UserID]; !ok {
			users = append(users, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	// retry holds reminders that must be offered again on the next run.
	retry := make(map[string]bool)
	for _, userID := range users {
		rems := byUser[userID]
		devices, err := u.devices.ListByUser(ctx, repository.NoTX, userID)
		if err != nil {
			u.log.Error().Err(err).Str("user_id", userID).Msg("list push subscriptions failed")
			mu.Lock()
			for _, r := range rems {
				retry[r.ID] = true
			}
			mu.Unlock()
			continue
		}

		payloads := make([]model.PushPayload, len(rems))
		for i, r := range rems {
			payloads[i] = u.payload(r)
		}
		for _, d := range devices {
			d := d
			wg.Add(1)
			task := func(ctx context.Context) error {
				defer wg.Done()
				u.deliverAll(ctx, d, rems, payloads, &rep, retry, &mu)
				return nil
			}
			if err := u.pool.SubmitWait(ctx, task); err != nil {
				wg.Done()
				mu.Lock()
				rep.Failed += len(rems)
				for _, r := range rems {
					retry[r.ID] = true
				}
				mu.Unlock()
				u.log.Warn().Err(err).Msg("push task not queued")
			}
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		// queued tasks are dropped when the pool shuts down
		mu.Lock()
		defer mu.Unlock()
		return rep, ctx.Err()
	}

	notified := make([]string, 0, len(due))
	for _, r := range due {
		if !retry[r.ID] {
			notified = append(notified, r.ID)
		}
	}
	if err := u.reminders.MarkNotified(ctx, repository.NoTX, notified, now); err != nil {
		u.log.Warn().Err(err).Int("count", len(notified)).Msg("mark reminders notified failed")
		return rep, nil
	}
	rep.Notified = len(notified)
	return rep, nil
}

// deliverAll pushes a user's reminders to one device in order and stops
// once the device is gone.
func (u *reminderUC) deliverAll(
	ctx context.Context,
	d *model.PushSubscription,
	rems []*model.Reminder,
	payloads []model.PushPayload,
	rep *DispatchReport,
	retry map[string]bool,
	mu *sync.Mutex,
) {
	for i, r := range rems {
		result := u.deliver(ctx, d, payloads[i])
		metrics.IncPushDelivery(result)
		mu.Lock()
		switch result {
		case "sent":
			rep.Sent++
		case "gone":
			rep.Gone++
		default:
			rep.Failed++
			retry[r.ID] = true
		}
		mu.Unlock()
		if result == "gone" {
			return
		}
	}
}

func (u *reminderUC) deliver(ctx context.Context, d *model.PushSubscription, payload model.PushPayload) string {
	err := u.sender.Send(ctx, d, payload)
	if err == nil {
		return "sent"
	}
	if errors.Is(err, domain.ErrPushSubscriptionGone) {
		if derr := u.devices.Delete(ctx, repository.NoTX, d.ID); derr != nil {
			u.log.Warn().Err(derr).Str("subscription", d.ID).Msg("delete gone push subscription failed")
		}
		return "gone"
	}
	u.log.Warn().Err(err).Str("user_id", d.UserID).Msg("push send failed")
	return "failed"
}

func (u *reminderUC) payload(r *model.Reminder) model.PushPayload {
	return model.PushPayload{
		Title: u.tr.T(keyReminderTitle, r.Title),
		Body:  u.tr.T(keyReminderBody, formatBRL(r.Amount)),
		URL:   u.opts.ClickURL,
	}
}

// formatBRL renders an amount with two decimals and a comma separator.
func formatBRL(v *float64) string {
	if v == nil {
		return "0,00"
	}
	return strings.Replace(strconv.FormatFloat(*v, 'f', 2, 64), ".", ",", 1)
}
