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

	"monteur/internal/app/commands"
	apphandlers "monteur/internal/app/handlers"
	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	"monteur/internal/app/queries"
	"monteur/internal/domain/pricing"
	"monteur/internal/domain/units"
	"monteur/internal/infra/clock"
	"monteur/internal/infra/config"
	ginserver "monteur/internal/infra/http/gin"
	"monteur/internal/infra/inbox"
	"monteur/internal/infra/notify"
	"monteur/internal/infra/obs"
	"monteur/internal/infra/security"
	"monteur/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("monteur stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("monteur stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tp, err := obs.NewTracerProvider(ctx, obs.TracingConfig{
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
		SampleRatio: cfg.TracingSampleRatio,
		Env:         cfg.Env,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	catalog, policy, err := loadPricing(cfg)
	if err != nil {
		return err
	}
	engine, err := pricing.NewEngine(catalog, policy)
	if err != nil {
		return err
	}
	clk, err := clock.NewSystem(cfg.TimeZone)
	if err != nil {
		return err
	}

	var notifier policies.Notifier = notify.LogNotifier{Logger: logger}
	var push *notify.WebPushNotifier
	if cfg.PushEnabled() {
		push = notify.NewWebPushNotifier(notify.WebPushConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subscriber: cfg.VAPIDSubject,
		}, notify.NewMemorySubscriptions(), logger)
		notifier = push
	}
	archiver, err := buildArchiver(cfg, logger)
	if err != nil {
		return err
	}

	router := &inbox.Router{Notifier: notifier, Logger: logger}
	st, err := openStorage(cfg, logger, router.Relay)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()
	router.Inbox = st.inbox

	cmds, qs := apphandlers.Build(apphandlers.Dependencies{
		UoWFactory: st.factory,
		Catalog:    catalog,
		Pricing:    engine,
		Clock:      clk,
		Outbox:     st.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Archiver:   archiver,
		Logger:     logger,
	}, apphandlers.Pipeline{
		Logger:      logger,
		Tracer:      tp.Tracer("monteur/internal/app"),
		Idempotency: st.idempotency,
	})
	router.Commands = cmds

	if st.source != nil {
		pipeCtx, cancelPipe := context.WithCancel(ctx)
		wait, err := startEventPipeline(pipeCtx, cfg, st, router, logger)
		if err != nil {
			cancelPipe()
			return err
		}
		defer func() {
			cancelPipe()
			wait()
		}()
	}

	handlers := buildHTTPHandlers(cfg, cmds, qs, push, logger)
	handlers.Today = clk.Today
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: st.checks}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "units", len(catalog.All()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadPricing(cfg config.Config) (*units.Catalog, pricing.Policy, error) {
	if cfg.PricingPolicyFile == "" {
		return units.DefaultCatalog(), pricing.DefaultPolicy(), nil
	}
	return config.LoadPolicy(cfg.PricingPolicyFile)
}

func buildArchiver(cfg config.Config, logger *slog.Logger) (policies.Archiver, error) {
	if cfg.S3Endpoint == "" {
		return s3.LogArchiver{Logger: logger}, nil
	}
	return s3.NewArchiver(s3.Config{
		Endpoint:  cfg.S3Endpoint,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	}, logger)
}

func buildHTTPHandlers(cfg config.Config, cmds commands.Bus, qs queries.Bus, push *notify.WebPushNotifier, logger *slog.Logger) ginserver.Handlers {
	availability := ginserver.AvailabilityHandler{Queries: qs, Logger: logger}
	reservations := ginserver.ReservationHandler{Commands: cmds, Queries: qs, Logger: logger}
	h := ginserver.Handlers{
		Availability:      availability,
		Calendar:          availability,
		Reservations:      reservations,
		AdminReservations: reservations,
		Blocks:            ginserver.BlockHandler{Commands: cmds, Queries: qs, Logger: logger},
	}
	if push != nil {
		h.Push = ginserver.PushHandler{Registry: push, Logger: logger}
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, operator API disabled")
		return h
	}
	h.OperatorAuth = ginserver.OperatorAuth{
		Credentials: security.OperatorCredentials{User: cfg.AdminUser, PasswordHash: cfg.AdminPasswordHash},
		Logger:      logger,
	}.Handle
	return h
}
