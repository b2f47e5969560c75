package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pricecheck-service/config"
	"pricecheck-service/internal/api"
	"pricecheck-service/internal/broker"
	"pricecheck-service/internal/cache"
	"pricecheck-service/internal/marketclient"
	"pricecheck-service/internal/redisclient"
	"pricecheck-service/internal/service"
	"pricecheck-service/internal/store"
	"pricecheck-service/internal/util"
	"pricecheck-service/internal/worker"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pricecheck service")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("pricecheck-service", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	client := marketclient.New(marketclient.Config{
		BaseURL:   cfg.Market.BaseURL,
		Locale:    cfg.Market.Locale,
		Timeout:   cfg.Market.Timeout,
		RateLimit: cfg.Market.RateLimit,
		RateBurst: cfg.Market.RateBurst,
	})

	var redisClient *redisclient.Client
	if cfg.Cache.Persistence == config.PersistenceRedis || cfg.Kafka.Enabled {
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		switch {
		case err == nil:
			redisClient = rc
			defer redisClient.Close()
			logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		case cfg.Cache.Persistence == config.PersistenceRedis:
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		default:
			logger.Warn("Redis unavailable, price check requests will not be deduplicated", zap.Error(err))
		}
	}

	var db *store.Store
	if cfg.Cache.Persistence == config.PersistencePostgres {
		var err error
		db, err = store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected")
	}

	var catalogStore cache.Store
	switch cfg.Cache.Persistence {
	case config.PersistenceRedis:
		catalogStore = redisclient.NewCacheStore(redisClient, cfg.Cache.ID)
	case config.PersistencePostgres:
		pgStore := store.NewCacheStore(db, cfg.Cache.ID)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare cache table", zap.Error(err))
		}
		catalogStore = pgStore
	}

	catalog := cache.New(ctx, cache.Options{
		Name:                 "catalog",
		MaxSize:              cfg.Cache.MaxSize,
		TTL:                  cfg.Cache.TTL,
		VersionCheckInterval: cfg.Cache.VersionCheckInterval,
		Versions:             client,
		Store:                catalogStore,
	})
	orders := cache.New(ctx, cache.Options{
		Name:    "orders",
		MaxSize: cfg.Cache.MaxSize,
		TTL:     cfg.Cache.OrdersTTL,
	})

	opts := service.Options{AssetsBaseURL: cfg.Market.AssetsBaseURL}

	var (
		eventProducer   *broker.Producer
		requestProducer *broker.Producer
		eventPublisher  *broker.EventPublisher
	)
	if cfg.Kafka.Enabled {
		eventProducer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPriceEvents)
		defer eventProducer.Close()
		requestProducer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPriceRequests)
		defer requestProducer.Close()
		logger.Info("Kafka producers initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		eventPublisher = broker.NewEventPublisher(eventProducer)
		opts.Observer = eventPublisher
	}

	marketService := service.NewMarketService(client, catalog, orders, opts)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var priceWorker *worker.PriceCheckWorker
	if cfg.Kafka.Enabled {
		var dedup worker.Deduplicator
		if redisClient != nil {
			dedup = redisClient
		}
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPriceRequests, cfg.Kafka.ConsumerGroup)
		priceWorker = worker.NewPriceCheckWorker(consumer, marketService, eventPublisher, dedup)
		go func() {
			if err := priceWorker.Start(workerCtx); err != nil {
				logger.Error("Price check worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(marketService)
	if requestProducer != nil {
		handler.WithRequester(broker.NewRequestPublisher(requestProducer))
	}
	if redisClient != nil {
		handler.WithDependency("redis", redisClient)
	}
	if db != nil {
		handler.WithDependency("postgres", db)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if priceWorker != nil {
		if err := priceWorker.Stop(); err != nil {
			logger.Warn("Error stopping price check worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
