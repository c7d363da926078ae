package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/cardmarket/internal/api/http"
	"github.com/spec-kit/cardmarket/internal/api/http/handlers"
	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/observability"
	"github.com/spec-kit/cardmarket/internal/persistence"
	"github.com/spec-kit/cardmarket/internal/repository"
	"github.com/spec-kit/cardmarket/internal/repository/memory"
	"github.com/spec-kit/cardmarket/internal/service"
	"github.com/spec-kit/cardmarket/internal/session"
	"github.com/spec-kit/cardmarket/internal/worker"
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
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repository.Set
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewPostgresSet(pool)
	} else {
		repos = memory.NewStore(cfg.Store.Latency()).Repositories()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var sessionStore session.Store = session.NewMemoryStore()
	if redis != nil {
		sessionStore = session.NewRedisStore(redis.Client, cfg.Redis.KeyPrefix)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	sessions := session.NewManager(sessionStore, tokens.TTL())
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	if cfg.Market.SeedDemoData {
		if err := service.SeedDemoData(ctx, repos, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Repos:    repos,
		Sessions: sessions,
		Tokens:   tokens,
		Logger:   logger,
	})
	cardService := service.NewCardService(service.CardDependencies{
		Repos:        repos,
		Dispatcher:   dispatcher,
		Logger:       logger,
		AutoComplete: cfg.Market.OrderAutoComplete,
	})
	orderService := service.NewOrderService(service.OrderDependencies{Repos: repos, Dispatcher: dispatcher, Logger: logger})
	userService := service.NewUserService(service.UserDependencies{
		Repos:      repos,
		Sessions:   sessions,
		Market:     cfg.Market,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	withdrawalService := service.NewWithdrawalService(service.WithdrawalDependencies{Repos: repos, Dispatcher: dispatcher, Logger: logger})
	depositService := service.NewDepositService(service.DepositDependencies{
		Repos:      repos,
		Market:     cfg.Market,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{Repos: repos, Dispatcher: dispatcher, Logger: logger})
	dashboardService := service.NewDashboardService(repos)

	notifier := worker.StartNotificationWorker(ctx, dispatcher,
		service.NewNotificationService(logger, cfg.Notification), logger, 0)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), sessions, repos.Users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Cards:          handlers.NewCardsHandler(cardService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Users:          handlers.NewUsersHandler(userService),
		Withdrawals:    handlers.NewWithdrawalsHandler(withdrawalService),
		Deposits:       handlers.NewDepositsHandler(depositService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
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
	notifier.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
