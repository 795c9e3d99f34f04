package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/infra/metrics"
)

// periodic runs tick once at start and then every interval until ctx ends.
// With a locker set, a run is skipped while another instance holds the job
// lock.
type periodic struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	locker   adapter.Locker
	log      *zerolog.Logger
	now      func() time.Time
}

func (p *periodic) run(ctx context.Context, tick func(ctx context.Context, now time.Time) error) error {
	p.log.Info().Dur("interval", p.interval).Msgf("Starting %s worker", p.name)
	p.once(ctx, tick)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msgf("Stopping %s worker", p.name)
			return ctx.Err()
		case <-ticker.C:
			p.once(ctx, tick)
		}
	}
}

func (p *periodic) once(ctx context.Context, tick func(ctx context.Context, now time.Time) error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.locker != nil {
		key := "lock:job:" + p.name
		token, err := p.locker.TryLock(runCtx, key, p.timeout)
		if errors.Is(err, domain.ErrLockBusy) {
			metrics.IncJob(p.name, "skipped")
			p.log.Debug().Msg("job held by another instance")
			return
		}
		if err != nil {
			// run anyway; overlapping runs are idempotent
			p.log.Warn().Err(err).Msg("job lock unavailable")
		} else {
			defer func() {
				uctx, ucancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer ucancel()
				_ = p.locker.Unlock(uctx, key, token)
			}()
		}
	}

	if err := tick(runCtx, p.now()); err != nil {
		metrics.IncJob(p.name, "failed")
		p.log.Error().Err(err).Msgf("%s run failed", p.name)
		return
	}
	metrics.IncJob(p.name, "completed")
}

func newPeriodic(name string, interval time.Duration, locker adapter.Locker, logger *zerolog.Logger) *periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := interval / 2
	if timeout < 10*time.Second {
		timeout = 10 * time.Second
	}
	l := logger.With().Str("component", name+"_worker").Logger()
	return &periodic{
		name:     name,
		interval: interval,
		timeout:  timeout,
		locker:   locker,
		log:      &l,
		now:      time.Now,
	}
}
