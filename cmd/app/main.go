// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"venux-billing/internal/config"
	"venux-billing/internal/domain/ports/adapter"
	payAdapters "venux-billing/internal/infra/adapters/payment"
	pushAdapters "venux-billing/internal/infra/adapters/push"
	tele "venux-billing/internal/infra/adapters/telegram"
	"venux-billing/internal/infra/api"
	"venux-billing/internal/infra/api/apiv1"
	pg "venux-billing/internal/infra/db/postgres"
	"venux-billing/internal/infra/i18n"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/infra/metrics"
	red "venux-billing/internal/infra/redis"
	"venux-billing/internal/infra/sched"
	"venux-billing/internal/infra/worker"
	"venux-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	if *migrateOnly {
		logger.Info().Msg("migrations applied")
		return
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)
	dedupe := red.NewEventDedupe(redisClient, cfg.Billing.EventDedupeTTL)

	// ---- Repositories ----
	profiles := pg.NewProfileRepoCacheDecorator(pg.NewProfileRepo(pool), redisClient, cfg.Redis.TTL)
	reminders := pg.NewReminderRepo(pool)
	devices := pg.NewPushSubscriptionRepo(pool)
	ledger := pg.NewLedgerRepo(pool)

	// ---- Adapters ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	billing, err := payAdapters.NewStripeGateway(cfg.Stripe, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("stripe gateway")
	}
	if cfg.Stripe.WebhookSecret == "" && !cfg.Stripe.RequireSignature {
		logger.Warn().Msg("stripe.webhook_secret not set; webhook payloads are trusted without verification (UNSAFE)")
	}
	verifier := payAdapters.NewStripeWebhook(cfg.Stripe.WebhookSecret, !cfg.Stripe.RequireSignature, logger)

	var alerts adapter.AlertNotifier
	if cfg.Alert.TelegramToken != "" {
		bot, err := tele.NewAlertBot(cfg.Alert, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram alerts")
		}
		alerts = bot
	} else {
		logger.Warn().Msg("alert.telegram_token not set; ops alerts go to the log only")
		alerts = tele.NewNoopAlerter(logger)
	}

	// ---- Use cases ----
	syncUC := usecase.NewSyncUseCase(profiles, billing, locker, limiter, tr, usecase.SyncOptions{
		LockTTL:    cfg.Billing.SyncLockTTL,
		RateLimit:  cfg.Billing.SyncRateLimit,
		RateWindow: cfg.Billing.SyncRateWindow,
	}, logger)
	checkoutUC := usecase.NewCheckoutUseCase(profiles, billing, pg.NewTxManager(pool), cfg.Billing.AllowedPrices, logger)
	portalUC := usecase.NewPortalUseCase(profiles, billing, cfg.Billing.DefaultReturnURL, logger)
	statusUC := usecase.NewStatusUseCase(profiles)
	webhookUC := usecase.NewWebhookUseCase(verifier, billing, profiles, dedupe, alerts, tr, logger)
	reconcileUC := usecase.NewReconcileUseCase(profiles, syncUC, cfg.Scheduler.ReconcileGrace, cfg.Scheduler.ReconcileRetry, logger)

	// ---- HTTP ----
	deps := apiv1.Deps{
		Checkout: checkoutUC,
		Portal:   portalUC,
		Sync:     syncUC,
		Status:   statusUC,
		Webhook:  webhookUC,
	}
	if cfg.Accessor.Enabled() {
		deps.Accessor = usecase.NewAccessorUseCase(profiles, ledger, tr, usecase.AccessorOptions{
			SiteURL: cfg.Accessor.SiteURL,
		}, logger)
		deps.AccessorKeys = apiv1.AccessorKeys{
			ServiceToken: cfg.Accessor.ServiceToken,
			PublicSecret: cfg.Accessor.PublicReportSecret,
		}
	} else {
		logger.Info().Msg("accessor credentials not set; /api/v1/accessor disabled")
	}
	v1 := apiv1.NewServer(deps, apiv1.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience), tr, logger)

	router := api.NewRouter(cfg.HTTP, logger, v1, map[string]api.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	})
	server := api.NewHTTPServer(cfg.HTTP, router)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Background jobs ----
	go sched.NewReconcileWorker(cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileBatch, reconcileUC, locker, logger).Run(ctx)

	var pushPool *worker.Pool
	if sender, err := pushAdapters.NewWebPushSender(cfg.Push, logger); err != nil {
		logger.Warn().Err(err).Msg("web push disabled; reminder worker not started")
	} else {
		pushPool = worker.NewPool(cfg.Scheduler.Workers, logger)
		pushPool.Start(ctx)
		reminderUC := usecase.NewReminderUseCase(reminders, devices, sender, pushPool, tr, usecase.ReminderOptions{
			Location: cfg.Location(),
			Batch:    cfg.Scheduler.ReminderBatch,
			ClickURL: cfg.Push.ClickURL,
		}, logger)
		go sched.NewReminderWorker(cfg.Scheduler.ReminderInterval, reminderUC, locker, logger).Run(ctx)
	}

	go observePool(ctx, pool)

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if pushPool != nil {
		pushPool.Stop()
	}
}

func observePool(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		metrics.ObserveDBPool(pool.Stat())
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
