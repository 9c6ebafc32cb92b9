package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpmetrics "skincareReco/app/echo-server/metrics"
	"skincareReco/app/echo-server/router"
	"skincareReco/business/bandit"
	"skincareReco/internal/middleware"
	badgerRepo "skincareReco/internal/repository/badger"
	psqlRepo "skincareReco/internal/repository/postgres"
	redisRepo "skincareReco/internal/repository/redis"
	"skincareReco/internal/rest"
	"skincareReco/pkg/config"
	"skincareReco/pkg/database"
	redisdb "skincareReco/pkg/database/redis"
	"skincareReco/pkg/logger"
	"skincareReco/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	gobreaker "github.com/sony/gobreaker/v2"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting skincare recommendation service", "version", cfg.App.Version, "bandit_store", cfg.Bandit.Store)

	metrics.Init()
	httpmetrics.Init()

	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.InitPostgres(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		logger.Info("Database connected successfully")
	}

	// closers run in reverse order on shutdown
	var closers []func() error
	ready := func() error { return nil }

	var store bandit.ArmStore
	switch cfg.Bandit.Store {
	case config.StorePostgres:
		store = psqlRepo.NewArmRepository(db)
	case config.StoreBadger:
		bdb, err := database.OpenBadger(database.BadgerOptionsFromConfig(cfg, logger.L()))
		if err != nil {
			logger.Fatal("Failed to open badger", "error", err)
		}
		closers = append(closers, bdb.Close)
		store = badgerRepo.NewArmStore(bdb)
	case config.StoreRedis:
		client, err := redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		closers = append(closers, func() error { return redisdb.CloseRedisClient(client) })
		store = redisRepo.NewArmStore(client)
		ready = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		}
	default:
		store = bandit.NewMemoryStore()
	}

	var breaker *bandit.BreakerStore
	if cfg.Bandit.Store != config.StoreMemory {
		bcfg := bandit.DefaultBreakerConfig("bandit-" + cfg.Bandit.Store)
		bcfg.FailureThreshold = cfg.Bandit.BreakerFailureThreshold
		bcfg.Timeout = cfg.Bandit.BreakerTimeout
		breaker = bandit.NewBreakerStore(store, bcfg)
		store = breaker
	}

	// Init repo
	var (
		eventRepo  bandit.EventRepository
		policyRepo bandit.PolicyRepository
		catalog    rest.CandidateCatalog
	)
	if db != nil {
		eventRepo = psqlRepo.NewInteractionRepository(db)
		policyRepo = psqlRepo.NewBanditConfigRepository(db)
		catalog = psqlRepo.NewProductRepository(db)
		closers = append(closers, func() error { return database.ClosePostgres(db) })

		dbReady := ready
		ready = func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return dbReady()
		}
	}

	// Init service
	banditService := bandit.NewBanditService(store, eventRepo, policyRepo, bandit.Config{
		Policy: bandit.RewardPolicy{
			View:              cfg.Bandit.RewardView,
			Click:             cfg.Bandit.RewardClick,
			AddToCart:         cfg.Bandit.RewardAddToCart,
			MaxObservedReward: cfg.Bandit.MaxObservedReward,
		},
		DefaultK:        cfg.Bandit.DefaultK,
		RankChunkSize:   cfg.Bandit.RankChunkSize,
		RankConcurrency: cfg.Bandit.RankConcurrency,
	})

	storeReady := ready
	ready = func() error {
		if breaker != nil && breaker.State() == gobreaker.StateOpen {
			return errors.New("bandit store circuit is open")
		}
		return storeReady()
	}

	// Init handler
	banditHandler := rest.NewBanditHandler(banditService, catalog, cfg.Server.RequestTimeout)
	banditAdminHandler := rest.NewBanditAdminHandler(banditService)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(httpmetrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))

	// Auth middleware
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	optionalAuth := middleware.OptionalAuth(cfg.JWT.SecretKey)

	// Setup routes
	router.SetOpsRoutes(e, ready)
	api := e.Group("/api/v1")
	router.SetBanditRoutes(api, banditHandler, optionalAuth)
	router.SetInteractionRoutes(api, banditHandler, authRequired, optionalAuth)
	router.SetBanditAdminRoutes(api, banditAdminHandler, authRequired, middleware.AdminOnly())

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Error("Failed to close resource", "error", err)
		}
	}

	logger.Info("Server stopped")
}
