package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urban-store/internal/cache"
	"urban-store/internal/config"
	"urban-store/internal/httpserver"
	"urban-store/internal/ledger"
	"urban-store/internal/logging"
	"urban-store/internal/metrics"
	"urban-store/internal/notify"
	"urban-store/internal/repo"
	"urban-store/internal/sched"
	"urban-store/internal/wa"
	"urban-store/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting urban-store backend", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	var sender notify.Sender
	if cfg.WhatsAppEnabled {
		waClient, err := wa.New(ctx, wa.Config{
			StorePath: cfg.WhatsAppStorePath,
			LogLevel:  cfg.WhatsAppLogLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("init whatsapp client: %w", err)
		}
		defer waClient.Close()

		go func() {
			if err := waClient.Start(ctx); err != nil {
				logger.Error("whatsapp client stopped", "error", err)
				stop()
			}
		}()
		sender = waClient
	} else {
		logger.Warn("whatsapp disabled, reminders will be simulated")
		sender = notify.NewSimulatedSender(logger)
	}

	saleCoordinator := ledger.NewSaleCoordinator(repository, metricRegistry, logger)
	paymentCoordinator := ledger.NewPaymentCoordinator(repository, metricRegistry, logger)
	dispatcher := notify.NewDispatcher(repository, sender, metricRegistry, logger, cfg.StoreName, cfg.DispatchInterval)

	scheduler, err := sched.New(ctx, dispatcher, logger, cfg.DebtReminderCron, cfg.ScheduledCron)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Store:        repository,
		Sales:        saleCoordinator,
		Payments:     paymentCoordinator,
		Dispatcher:   dispatcher,
		Redis:        redisClient,
		DashboardTTL: cfg.DashboardTTL,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
