package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"luxrent/internal/app/commands"
	refundapp "luxrent/internal/app/handlers/refund"
	"luxrent/internal/app/middleware"
	appoutbox "luxrent/internal/app/outbox"
	"luxrent/internal/app/policies"
	"luxrent/internal/app/queries"
	"luxrent/internal/infra/broker/kafka"
	"luxrent/internal/infra/config"
	"luxrent/internal/infra/db/mongo"
	ginserver "luxrent/internal/infra/http/gin"
	"luxrent/internal/infra/monitoring"
	"luxrent/internal/infra/notify"
	"luxrent/internal/infra/obs"
	"luxrent/internal/infra/outbox"
	"luxrent/internal/infra/payments"
	"luxrent/internal/infra/storage/bolt"
	"luxrent/internal/infra/storage/memory"
	"luxrent/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV"), "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, SkipPaths: []string{"/livez", "/readyz", "/metrics"}}, app.health, app.handlers)

	group, gctx := errgroup.WithContext(ctx)
	if app.relay != nil {
		group.Go(func() error {
			logger.Info("outbox relay starting", "interval", cfg.OutboxPollInterval)
			if err := app.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "gateway", cfg.GatewayMode, "storage", cfg.StorageMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := app.events.Flush(shutdownCtx); err != nil {
			logger.Warn("monitoring events not flushed", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("refund service failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	events   *obs.EventLogger
	relay    *outbox.Worker
	closers  []func(context.Context) error
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("resource close failed", "error", err)
		}
	}
}

func (a *application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{health: obs.HealthHandlers{Checks: map[string]obs.ReadinessCheck{}}}
	ok := false
	defer func() {
		if !ok {
			app.close(logger)
		}
	}()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	logger.Info("refund policy loaded", "version", policy.Version, "path", cfg.PolicyFile)

	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)
	eventOpts := []obs.EventLoggerOption{}
	if cfg.MonitoringWebhookURL != "" {
		sink, err := monitoring.NewWebhookSink(cfg.MonitoringWebhookURL, cfg.MonitoringWebhookSecret, nil)
		if err != nil {
			return nil, err
		}
		eventOpts = append(eventOpts, obs.WithSink(sink))
	}
	app.events = obs.NewEventLogger(logger, cfg.ServiceName, eventOpts...)

	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return nil, err
	}

	var db *mongo.Client
	if cfg.NeedsMongo() {
		db, err = mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		app.onClose(db.Close)
		app.health.Checks["mongo"] = db.Ping
	}

	var producer *kafka.Producer
	if cfg.NeedsKafka() {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, nil)
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return producer.Close() })
	}

	idStore, err := buildIdempotencyStore(ctx, cfg, db, app)
	if err != nil {
		return nil, err
	}

	var (
		ledger policies.RefundLedger
		box    appoutbox.Outbox
	)
	switch cfg.StorageMode {
	case "mongo":
		ledger = mongo.NewRefundLedger(db.DB)
		store, err := outbox.NewMongoStore(ctx, db.DB)
		if err != nil {
			return nil, err
		}
		box = store
		app.relay = &outbox.Worker{
			Store:       store,
			Producer:    producer,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
	default:
		ledger = memory.NewRefundLedger()
		box = memory.NewOutbox()
	}
	if cfg.LedgerArchive == "s3" {
		uploader, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint)
		if err != nil {
			return nil, err
		}
		app.health.Checks["s3"] = uploader.Ping
		ledger = s3.NewArchivingLedger(ledger, uploader, logger)
	}

	var notifier policies.Notifier
	switch cfg.Notifier {
	case "sendgrid":
		notifier = notify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
	case "kafka":
		notifier = notify.NewKafkaNotifier(producer, cfg.KafkaTopicPrefix)
	default:
		notifier = notify.LogNotifier{Logger: logger}
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, refundapp.ProcessRefundKey, &refundapp.ProcessRefundHandler{
		Gateway:  gateway,
		Notifier: notifier,
		Ledger:   ledger,
		Outbox:   box,
		Encoder:  appoutbox.JSONEventEncoder{},
		Policy:   policy,
		Clock:    policies.SystemClock,
		Events:   app.events,
		Metrics:  metrics,
		Logger:   logger,
	})
	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, refundapp.GetRefundKey, &refundapp.GetRefundHandler{Ledger: ledger})

	bus := middleware.ChainCommands(
		commandBus,
		middleware.Instrument(logger, metrics),
		middleware.Idempotency(logger, idStore, nil, cfg.IdempotencyTTL),
	)

	app.handlers = ginserver.Handlers{
		Refund:         ginserver.RefundHandler{Commands: bus, Events: app.events, Logger: logger},
		RefundLookup:   ginserver.RefundLookupHandler{Queries: queryBus},
		Metrics:        metrics,
		MetricsHandler: ginserver.DefaultMetricsHandler(),
	}
	if cfg.RateLimitRPS > 0 {
		limiter := ginserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		app.onClose(func(context.Context) error { limiter.Stop(); return nil })
		app.handlers.RateLimit = limiter.Middleware()
	}
	ok = true
	return app, nil
}

func buildGateway(cfg config.Config, logger *slog.Logger) (policies.PaymentGateway, error) {
	if cfg.GatewayMode == "stripe" {
		return payments.NewStripeGateway(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, nil, logger), nil
	}
	charges, err := loadChargeFixtures(cfg.ChargesFixtures)
	if err != nil {
		return nil, err
	}
	logger.Info("in-memory gateway seeded", "charges", len(charges), "path", cfg.ChargesFixtures)
	return memory.NewGateway(charges...), nil
}

func buildIdempotencyStore(ctx context.Context, cfg config.Config, db *mongo.Client, app *application) (middleware.IdempotencyStore, error) {
	switch cfg.IdempStore {
	case "mongo":
		return mongo.NewIdempotencyStore(ctx, db.DB, cfg.IdempotencyTTL)
	case "bolt":
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return store.Close() })
		if cfg.IdempotencyTTL > 0 {
			if _, err := store.Prune(time.Now().Add(-cfg.IdempotencyTTL)); err != nil {
				return nil, err
			}
		}
		return store, nil
	default:
		return memory.NewIdempotencyStore(), nil
	}
}
