package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kpapadakis/ali-price-checker/internal/aliexpress"
	"github.com/kpapadakis/ali-price-checker/internal/api"
	"github.com/kpapadakis/ali-price-checker/internal/browser"
	"github.com/kpapadakis/ali-price-checker/internal/config"
	"github.com/kpapadakis/ali-price-checker/internal/database"
	"github.com/kpapadakis/ali-price-checker/internal/events"
	"github.com/kpapadakis/ali-price-checker/internal/jobs"
	"github.com/kpapadakis/ali-price-checker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting price checker server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	publisher := events.NewPublisher(redisClient, cfg.Redis.Stream, logger)

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
		DebugDumpDir:   cfg.Browser.DebugDumpDir,
	}
	if len(cfg.Browser.UserAgents) > 0 {
		browserOpts.UserAgent = cfg.Browser.UserAgents[0]
	}

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	// Each job gets a fresh configured session; jobs with empty country or
	// currency fall back to the server defaults.
	factory := func(ctx context.Context, country, currency string) (jobs.Checker, error) {
		if country == "" {
			country = cfg.Checker.Country
		}
		if currency == "" {
			currency = cfg.Checker.Currency
		}

		driver, err := aliexpress.NewDriver(b, aliexpress.DriverConfig{
			Country:       country,
			Currency:      currency,
			Debug:         cfg.Browser.Debug,
			MaxRetries:    cfg.Checker.MaxRetries,
			RetryInterval: cfg.Checker.RetryInterval,
			SettingsWait:  cfg.Checker.SettingsWait,
		}, logger)
		if err != nil {
			return nil, err
		}

		if err := driver.Configure(ctx); err != nil {
			driver.Close()
			return nil, err
		}
		return driver, nil
	}

	manager := jobs.NewManager(repo, factory, publisher, jobs.ManagerConfig{
		RateLimitMin: cfg.Checker.RateLimitMin,
		RateLimitMax: cfg.Checker.RateLimitMax,
	}, logger)

	go manager.StartWorker(ctx)

	handler := api.NewHandler(manager, logger)
	router := api.NewRouter(handler, []string{"*"})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("Server stopped")
}
