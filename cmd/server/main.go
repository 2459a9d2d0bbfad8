package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/immolink/backend/api/handler"
	"github.com/immolink/backend/internal/config"
	"github.com/immolink/backend/internal/infrastructure/monitor"
	"github.com/immolink/backend/internal/infrastructure/outbox"
	pgInfra "github.com/immolink/backend/internal/infrastructure/postgres"
	redisInfra "github.com/immolink/backend/internal/infrastructure/redis"
	"github.com/immolink/backend/internal/middleware"
	"github.com/immolink/backend/internal/notify"
	"github.com/immolink/backend/internal/router"
	"github.com/immolink/backend/internal/services/lifecycle"
	"github.com/immolink/backend/pkg/httpcontext"
	"github.com/immolink/backend/pkg/logger"
	"github.com/immolink/backend/repository/postgres"
	collabUC "github.com/immolink/backend/usecase/collaboration"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open notification outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	publisher := notify.NewRedisPublisher(redisClient, cfg.Notify.Channel)
	dispatcher := notify.NewDispatcher(publisher, outboxStore, notify.HealthFunc(mon.RedisOnline), zapLogger)

	outboxProcessor := notify.NewProcessor(
		outboxStore,
		publisher,
		notify.HealthFunc(mon.RedisOnline),
		zapLogger,
		notify.ProcessorConfig{
			Interval:   cfg.Outbox.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Outbox.MaxRetry,
			Retention:  time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
		},
	)
	outboxProcessor.Start()
	manager.Register("outbox_processor", func(ctx context.Context) error {
		outboxProcessor.Stop(ctx)
		return nil
	})

	collabRepo := postgres.NewCollaborationRepository(pool)
	subjectRegistry := postgres.NewSubjectRegistry(pool)
	userRepo := postgres.NewUserRepository(pool)

	collabUseCase := collabUC.New(collabRepo, subjectRegistry, userRepo, dispatcher, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Collaboration: apiHandler.NewCollaborationHandler(collabUseCase, ctxAdapter, zapLogger),
		Contract:      apiHandler.NewContractHandler(collabUseCase, ctxAdapter, zapLogger),
		Progress:      apiHandler.NewProgressHandler(collabUseCase, ctxAdapter, zapLogger),
		Health:        apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	guard := middleware.AuthGuard(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, guard)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
