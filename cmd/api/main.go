package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/jionu102/codeit-image-post-auth/internal/api/http"
	"github.com/jionu102/codeit-image-post-auth/internal/api/http/handlers"
	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/events"
	"github.com/jionu102/codeit-image-post-auth/internal/observability"
	"github.com/jionu102/codeit-image-post-auth/internal/persistence"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
	"github.com/jionu102/codeit-image-post-auth/internal/service"
	"github.com/jionu102/codeit-image-post-auth/internal/worker"
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

	codec, err := auth.NewTokenCodec(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token codec", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	readiness := map[string]handlers.Pinger{}

	var (
		userRepo repository.UserRepository
		registry repository.TokenRegistry
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		registry = repository.NewTokenRegistry(pool)
		readiness["postgres"] = pg
	} else {
		logger.Warn("using in-memory user and token stores; state is lost on restart")
		userRepo = repository.NewMemoryUserRepository()
		registry = repository.NewMemoryTokenRegistry()
	}

	if cfg.Auth.SeedUsers {
		if err := service.SeedUsers(ctx, userRepo, service.DefaultSeedAccounts, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Fatal("failed to seed users", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewSessionEventLogger(dispatcher, logger).RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Registry:   registry,
		Codec:      codec,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	authenticator := auth.NewAuthenticator(codec, logger, cfg.Auth.CookieSecure)

	routes := httptransport.RouteConfig{
		Mode:          cfg.Auth.Mode,
		Identity:      handlers.NewIdentityHandler(),
		Authenticator: authenticator,
		Metrics:       metrics,
	}

	switch cfg.Auth.Mode {
	case config.ModeSession:
		var store repository.SessionStore
		if cfg.Auth.SessionStore == config.SessionStoreRedis {
			rdb := persistence.NewRedis(cfg.Redis, logger)
			defer rdb.Close()
			store = repository.NewRedisSessionStore(rdb.Client)
			readiness["redis"] = rdb
		} else {
			store = repository.NewMemorySessionStore(nil)
		}
		guard := service.NewSessionGuard(cfg.Auth, service.SessionGuardDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		})
		routes.Session = handlers.NewSessionHandler(authService, guard, metrics, cfg.Auth.CookieSecure)
		routes.Sessions = guard
	default:
		sweeper := worker.NewSweeper(registry, codec, cfg.Auth.SweepInterval, logger, metrics)
		sweeper.Start(ctx)
		defer sweeper.Stop()
		routes.Auth = handlers.NewAuthHandler(authService, codec, cfg.Auth.CookieSecure, logger)
		routes.Admin = handlers.NewAdminHandler(sweeper)
	}
	routes.Health = handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("auth service started", zap.String("addr", cfg.App.Addr()), zap.String("mode", cfg.Auth.Mode))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
