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

	"github.com/tumortrace/classification-service/internal/api"
	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/config"
	"github.com/tumortrace/classification-service/internal/gateway"
	"github.com/tumortrace/classification-service/internal/lock"
	"github.com/tumortrace/classification-service/internal/messaging"
	"github.com/tumortrace/classification-service/internal/repository"
	"github.com/tumortrace/classification-service/internal/service"
	"github.com/tumortrace/classification-service/internal/storage"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("classification-service", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Classification Service", zap.String("environment", cfg.Environment))

	if cfg.RazorpayKeySecret == "" || cfg.JWTSecret == "" {
		telemetry.Logger.Fatal("RAZORPAY_KEY_SECRET and JWT_SECRET must be set")
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.InitDB(initCtx, db); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	cancelInit()

	payments := repository.NewPaymentRepository(db, cfg.StoreTimeout)
	classifications := repository.NewClassificationRepository(db, cfg.StoreTimeout)
	images := repository.NewImageRepository(db, cfg.StoreTimeout)
	users := repository.NewUserRepository(db, cfg.StoreTimeout)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	// Connect to Kafka
	kafkaWriter := messaging.NewKafkaWriter(cfg.KafkaBrokers)
	defer kafkaWriter.Close()

	orchestrator := service.NewOrchestrator(
		payments,
		classifications,
		gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayAPIBase, cfg.GatewayTimeout),
		lock.NewRedisLocker(redisClient),
		messaging.NewKafkaPublisher(kafkaWriter),
		cfg.RazorpayKeySecret,
		service.Pricing{Amount: cfg.ClassificationPrice, Currency: cfg.ClassificationCurrency},
	)
	imageService := service.NewImageService(
		images,
		storage.NewImageKitStorage(cfg.ImageKitPrivateKey, cfg.ImageKitUploadURL, cfg.ImageKitFolder, cfg.GatewayTimeout),
		messaging.NewNatsInferenceClient(nc, cfg.InferenceSubject, cfg.GatewayTimeout),
	)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	accounts := service.NewAccountService(users, images, tokens)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{
		Payments:              orchestrator,
		Images:                imageService,
		Accounts:              accounts,
		Google:                auth.NewGoogleAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Tokens:                tokens,
		CORSOrigins:           cfg.CORSOrigins,
		FrontendURL:           cfg.FrontendURL,
		RequirePaymentSession: cfg.RequirePaymentSession,
		SecureCookies:         cfg.IsProduction(),
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Classification Service starting", zap.String("port", cfg.Port))
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

	telemetry.Logger.Info("Server exited")
}
