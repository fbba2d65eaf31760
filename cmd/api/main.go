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

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/config"
	"github.com/flicky/mm2-store/internal/handler"
	"github.com/flicky/mm2-store/internal/logger"
	"github.com/flicky/mm2-store/internal/metrics"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/repository"
	"github.com/flicky/mm2-store/internal/service"
	"github.com/flicky/mm2-store/internal/upload"
	"github.com/flicky/mm2-store/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Fatal("parse db config", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := repository.Ping(ctx, dbPool); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("connect to Redis", zap.Error(err))
	}
	log.Info("connected to Redis")

	// RabbitMQ: one channel for publishing, one for the consumer
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("connect to RabbitMQ", zap.Error(err))
	}
	defer amqpConn.Close()

	pubCh, err := amqpConn.Channel()
	if err != nil {
		log.Fatal("open RabbitMQ channel", zap.Error(err))
	}
	defer pubCh.Close()

	if err := worker.SetupRabbitMQ(pubCh); err != nil {
		log.Fatal("setup RabbitMQ", zap.Error(err))
	}

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Fatal("open RabbitMQ channel", zap.Error(err))
	}
	defer consumeCh.Close()
	log.Info("connected to RabbitMQ")

	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		log.Fatal("prepare upload directory", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	chatRepo := repository.NewChatRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	sessions := repository.NewSessionStore(redisClient)
	idempotency := repository.NewIdempotencyStore(redisClient)

	// Services
	m := metrics.New()
	events := worker.NewPublisher(pubCh)

	authSvc := service.NewAuthService(userRepo, sessions, cfg.Session.Secret, cfg.Session.TTL, cfg.Admin.Password)
	productSvc := service.NewProductService(productRepo, redisClient, log)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(service.OrderServiceDeps{
		Orders:      orderRepo,
		Products:    productRepo,
		Idempotency: idempotency,
		Files:       uploads,
		Events:      events,
		Metrics:     m,
		Log:         log,
	})
	chatSvc := service.NewChatService(chatRepo, orderRepo, events, m, log)
	contactSvc := service.NewContactService(events, log)

	if n, err := productSvc.SeedIfEmpty(ctx); err != nil {
		log.Fatal("seed catalog", zap.Error(err))
	} else if n > 0 {
		log.Info("seeded catalog", zap.Int("products", n))
	}
	if cfg.Admin.Password == "" {
		log.Warn("ADMIN_PASSWORD is empty; admin verification is disabled")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Log:      log,
		Metrics:  m,
		Auth:     authSvc,
		Products: productSvc,
		Carts:    cartSvc,
		Orders:   orderSvc,
		Chats:    chatSvc,
		Contact:  contactSvc,
		Uploads:  uploads,
		Health:   handler.NewHealthHandler(dbPool, redisClient, amqpConn),
		Cookie: middleware.SessionCookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		},
		CartCookie: middleware.SessionCookie{
			Name:   cfg.Session.CartCookieName,
			Secure: cfg.Session.CookieSecure,
		},
		CartTTL: cfg.Session.CartTTL,
	})

	// Worker
	eventWorker := worker.NewEventWorker(consumeCh, redisClient, log)
	if err := eventWorker.Start(ctx); err != nil {
		log.Fatal("start event worker", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	eventWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
