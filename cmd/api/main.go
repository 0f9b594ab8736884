package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ledgerkit/identity-service/internal/api/http"
	"github.com/ledgerkit/identity-service/internal/api/http/handlers"
	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/config"
	"github.com/ledgerkit/identity-service/internal/events"
	"github.com/ledgerkit/identity-service/internal/oauth"
	"github.com/ledgerkit/identity-service/internal/observability"
	"github.com/ledgerkit/identity-service/internal/persistence"
	"github.com/ledgerkit/identity-service/internal/repository"
	"github.com/ledgerkit/identity-service/internal/service"
	"github.com/ledgerkit/identity-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect to identity store", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	adminRepo := repository.NewAdministratorRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	sessions := auth.NewSessionManager(cfg.Session.SigningSecret, cfg.Session.TTL())
	minter := auth.NewDatastoreTokenMinter(cfg.Datastore.SigningSecret, cfg.Datastore.TTL())
	materializer := auth.NewMaterializer(minter, logger)
	sessionMiddleware := auth.NewSessionMiddleware(sessions, materializer)

	identityService := service.NewIdentityService(*cfg, service.Dependencies{
		AdminRepo:   adminRepo,
		ProfileRepo: profileRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	var oauthHandler *handlers.OAuthHandler
	if cfg.OAuth.Enabled() {
		provider := oauth.NewGoogleProvider(cfg.OAuth)
		states := oauth.NewStateStore(redis.Client, 0)
		oauthHandler = handlers.NewOAuthHandler(provider, states, identityService, sessions, materializer, logger)
		logger.Info("oauth login enabled")
	} else {
		logger.Info("oauth login disabled; client credentials not configured")
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:              handlers.NewAuthHandler(identityService, sessions, materializer),
		OAuth:             oauthHandler,
		Session:           handlers.NewSessionHandler(identityService, sessions, materializer),
		Admin:             handlers.NewAdminHandler(metrics),
		SessionMiddleware: sessionMiddleware,
		BootstrapEnabled:  cfg.Bootstrap.Enabled(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
