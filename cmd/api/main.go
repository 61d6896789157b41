package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/repository"
	"pharmacy-portal/internal/server"
	"pharmacy-portal/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("env", cfg.Environment.Name))

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	if err := client.Migrate(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	runner := async.NewRunner(log)

	paymentClient := client.NewPaymentClient(&cfg.Payment)
	esignClient := client.NewESignClient(&cfg.ESign)
	emailClient := client.NewEmailClient(&cfg.Email, log)

	productRepo := repository.NewProductRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	submissionRepo := repository.NewFormSubmissionRepository(db)
	profileRepo := repository.NewUserProfileRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	notifier := service.NewNotifier(emailClient, cfg.Email.ModeratorAddress, m, log)
	reconciler := service.NewReconciler(
		cartRepo,
		orderRepo,
		inventoryRepo,
		notifier,
		runner,
		cfg.Payment,
		m, log,
	)

	services := server.Services{
		Cart: service.NewCartService(cartRepo, productRepo, cfg.Payment),
		Checkout: service.NewCheckoutService(
			paymentClient,
			cartRepo,
			webhookEventRepo,
			reconciler,
			runner,
			cfg.Payment,
			m, log,
		),
		Order:    service.NewOrderService(cartRepo, orderRepo, cfg.Payment, m, log),
		Product:  service.NewProductService(productRepo),
		Form:     service.NewFormService(submissionRepo, profileRepo, cartRepo, notifier, runner, log),
		Admin:    service.NewAdminService(submissionRepo, orderRepo),
		Provider: service.NewProviderService(providerRepo, esignClient, m, log),
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, services, registry, log)

	log.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	// let in-flight webhook settlement and emails finish
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error("background work did not drain", zap.Error(err))
	}
}
