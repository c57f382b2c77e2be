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

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"mentorship-backend/config"
	"mentorship-backend/internal/api"
	"mentorship-backend/internal/booking"
	"mentorship-backend/internal/calendar"
	"mentorship-backend/internal/db"
	"mentorship-backend/internal/identity"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/oauth"
	"mentorship-backend/internal/store"
	"mentorship-backend/internal/sweeper"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warn("VAPID keys are not configured, browser push is disabled")
	}
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sinks []notification.Sink
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, &webpushOptions, logger)
		workerPool.Start(ctx)
		sinks = append(sinks, workerPool)
	}
	var kafkaSink *notification.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink = notification.NewKafkaSink(notification.NewKafkaWriter(cfg.Kafka, logger), cfg.WorkerPool.QueueSize, logger)
		go kafkaSink.Run(ctx)
		sinks = append(sinks, kafkaSink)
	}
	hub := notification.NewHub(logger, 0, sinks...)

	credentials := oauth.NewManager(appStore, cfg.OAuth, logger)
	gateway := calendar.NewGateway(cfg.Calendar, logger)
	directory := identity.NewGormDirectory(gormDB, time.Duration(cfg.Server.CacheTTLSeconds)*time.Second)

	engine := booking.NewEngine(appStore, credentials, gateway, directory, hub, booking.Config{
		MaxAttempts:       cfg.Calendar.MaxAttempts,
		InitialBackoff:    cfg.Calendar.InitialBackoff,
		DefaultTimezone:   cfg.Calendar.DefaultTimezone,
		AutoCompleteAfter: cfg.Sweeper.AutoCompleteAfter,
	}, logger)

	go sweeper.NewService(cfg.Sweeper, engine, logger).Run(ctx)

	handler := api.NewHandler(appStore, engine, directory, credentials, hub, &webpushOptions, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server, logger),
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	cancel()
	if kafkaSink != nil {
		select {
		case <-kafkaSink.Done():
		case <-shutdownCtx.Done():
			logger.Warn("kafka sink did not drain before shutdown deadline")
		}
	}
	logger.Info("server gracefully stopped")
}
