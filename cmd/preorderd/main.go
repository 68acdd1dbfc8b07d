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

	"github.com/SherClockHolmes/webpush-go"

	"bagel-preorder-backend/config"
	"bagel-preorder-backend/internal/api"
	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/mw"
	"bagel-preorder-backend/internal/notification"
	"bagel-preorder-backend/internal/order"
	"bagel-preorder-backend/internal/schedule"
	"bagel-preorder-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "preorder-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	clock, err := schedule.NewClock(cfg.Schedule.Timezone)
	if err != nil {
		logger.Fatalf("failed to load schedule timezone: %v", err)
	}
	catalog := schedule.NewCatalog(cfg.Schedule.Slots)
	gate := capacity.NewGate(cfg.Schedule.Capacity)

	// Open the configured backend
	appStore, err := store.Open(&cfg.Store, gate)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer appStore.Close()

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := appStore.SeedSlots(seedCtx, catalog.TimeSlots()); err != nil {
		logger.Fatalf("failed to seed time slots: %v", err)
	}
	seedCancel()
	logger.Printf("data store initialized (backend=%s, current week %s)", cfg.Store.Backend, clock.CurrentWeek())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kitchen push alerts are optional
	var webpushOptions *webpush.Options
	var alerts *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		alerts = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		alerts.Start(ctx)
	} else {
		logger.Println("VAPID keys are not configured; kitchen push alerts are disabled")
	}

	dispatcher := notification.NewDispatcher(notification.NewSMSSender(cfg.SMS), alerts)
	orders := order.NewService(appStore, gate, catalog, clock, dispatcher)

	responseCache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	orders.OnChange(responseCache.Flush)

	handler := api.NewHandler(orders, appStore, webpushOptions, cfg.Kitchen)
	router := api.NewRouter(handler, cfg.Server, responseCache)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
