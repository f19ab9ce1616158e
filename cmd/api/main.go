package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mail-service/internal/api/http"
	"github.com/spec-kit/mail-service/internal/api/http/handlers"
	"github.com/spec-kit/mail-service/internal/auth"
	"github.com/spec-kit/mail-service/internal/classifier"
	"github.com/spec-kit/mail-service/internal/config"
	"github.com/spec-kit/mail-service/internal/events"
	"github.com/spec-kit/mail-service/internal/observability"
	"github.com/spec-kit/mail-service/internal/persistence"
	"github.com/spec-kit/mail-service/internal/repository"
	"github.com/spec-kit/mail-service/internal/repository/memory"
	"github.com/spec-kit/mail-service/internal/service"
	"github.com/spec-kit/mail-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		store = memory.NewStore()
	}

	var redis *persistence.Redis
	if cfg.Session.Backend == config.SessionBackendRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
	}

	sessionStore := newSessionStore(cfg, redis)
	sessions := auth.NewSessionManager(sessionStore, auth.CookieOptions{
		Name:     cfg.Session.CookieName,
		MaxAge:   cfg.Session.MaxAge(),
		Secure:   cfg.Session.Secure,
		SameSite: cfg.Session.SameSiteMode(),
	})

	spamClassifier, err := newClassifier(ctx, cfg.Classifier, metrics)
	if err != nil {
		logger.Fatal("failed to load spam classifier", zap.Error(err))
	}
	logger.Info("spam classifier ready", zap.String("backend", cfg.Classifier.Backend))

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	accountService := service.NewAccountService(service.AccountDependencies{
		Store:      store,
		Hasher:     auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		Store:      store,
		Classifier: spamClassifier,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.AllowedOrigins)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(accountService, sessions, logger),
		Emails:  handlers.NewEmailsHandler(messageService),
		Metrics: handlers.NewMetricsHandler(metrics),
		Guard:   auth.NewSessionGuard(sessions),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newSessionStore(cfg *config.Config, redis *persistence.Redis) auth.SessionStore {
	if cfg.Session.Backend == config.SessionBackendCookie {
		return auth.NewCookieSessionStore(auth.NewTokenManager(cfg.Session.Secret, cfg.Session.MaxAge()))
	}
	return auth.NewRedisSessionStore(redis.Client, cfg.Session.KeyPrefix, cfg.Session.MaxAge())
}

// newClassifier builds the configured backend once; a model that fails to
// load stops the process.
func newClassifier(ctx context.Context, cfg config.ClassifierConfig, metrics *observability.Metrics) (classifier.Classifier, error) {
	var backend classifier.Classifier
	switch cfg.Backend {
	case config.ClassifierBackendModel:
		model, err := classifier.LoadModel(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		backend = model
	case config.ClassifierBackendSpamAssassin:
		sa, err := classifier.NewSpamAssassin(ctx, cfg.SpamdAddr, cfg.SpamdTimeout())
		if err != nil {
			return nil, err
		}
		backend = sa
	case config.ClassifierBackendNone:
		backend = classifier.Disabled{}
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
	return classifier.NewInstrumented(cfg.Backend, backend, metrics), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
