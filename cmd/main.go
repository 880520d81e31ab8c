package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/api"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/cache"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/config"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/handlers"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/interfaces"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/notification"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository/memory"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/service"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

func main() {
	// Load configuration
	cfg, err := config.New()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry(cfg.APP.ServiceName, cfg.Telemetry.OTLPEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.RegisterMetrics()

	telemetry.Logger.Info("Starting Webhook Ingestor", zap.String("store", cfg.DB.Driver))

	// Storage
	var (
		events interfaces.WebhookEventRepository
		orders interfaces.OrderRepository
	)
	switch cfg.DB.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		events, orders = store, store
		telemetry.Logger.Warn("Using in-memory store, data will not survive a restart")
	default:
		db, err := openPostgres(cfg.DB)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		events = repository.NewWebhookEventRepository(db)
		orders = repository.NewOrderRepository(db)
	}

	// In-flight lock
	var lock cache.InFlightLock = cache.NoopLock{}
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.URL,
		})
		defer redisClient.Close()
		lock = cache.NewRedisLock(redisClient, cfg.Redis.LockTTL)
	}

	// Notification channels
	notifiers := []notification.Notifier{}
	if cfg.SMTP.Host != "" {
		notifiers = append(notifiers, notification.NewEmailNotifier(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender,
		))
	}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		notifiers = append(notifiers, notification.NewNATSNotifier(nc, cfg.NATS.NotificationSubject))
	}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kafkaNotifier := notification.NewKafkaNotifier(
			notification.NewKafkaWriter(brokers, cfg.Kafka.OrderEventsTopic),
		)
		defer kafkaNotifier.Close()
		notifiers = append(notifiers, kafkaNotifier)
	}

	dispatcher := notification.NewDispatcher(cfg.Notification.Workers, cfg.Notification.QueueSize, notifiers...)
	dispatcher.Start()

	// Webhook pipeline
	webhookService := service.NewWebhookService(events, orders, dispatcher, lock)
	webhookHandler := handlers.NewWebhookHandler(
		verifier.NewStripeVerifier(cfg.Webhooks.StripeSecret),
		verifier.NewSquareVerifier(cfg.Webhooks.SquareSignatureKey, cfg.Webhooks.SquareURL),
		webhookService,
	)
	orderHandler := handlers.NewOrderHandler(orders, events)

	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(webhookHandler, orderHandler, cfg.AdminToken())
	if cfg.AdminToken() == "" {
		telemetry.Logger.Info("Operator endpoints disabled")
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.APP.PORT,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Webhook Ingestor starting", zap.String("port", cfg.APP.PORT))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(ctx); err != nil {
		telemetry.Logger.Warn("Pending notifications not delivered before shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}

func openPostgres(cfg config.DB) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := repository.InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}
