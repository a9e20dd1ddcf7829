package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketfin-finance-services/internal/cache"
	"marketfin-finance-services/internal/config"
	"marketfin-finance-services/internal/db"
	"marketfin-finance-services/internal/feed"
	httpapi "marketfin-finance-services/internal/http"
	"marketfin-finance-services/internal/http/handlers"
	"marketfin-finance-services/internal/ledger"
	"marketfin-finance-services/internal/logger"
	"marketfin-finance-services/internal/queue"
	"marketfin-finance-services/internal/storage"
	"marketfin-finance-services/internal/store"
	"marketfin-finance-services/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := applyMigrations(ctx, pool); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; falling back to polling", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := qc.EnsureFeedTopology(); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq topology failed", zap.Error(err))
				}
				log.Warn("rabbitmq topology failed; falling back to polling", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
		if qc != nil {
			defer qc.Close()
			log.Info("change feed enabled", zap.String("queue", queue.FeedQueue))
		}
	} else {
		log.Info("change feed disabled (RABBITMQ_URL is empty); polling only")
	}

	var resultCache *cache.Cache
	if cfg.RedisAddr != "" {
		resultCache, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, int(cfg.RedisDB), cfg.CacheTTL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; continuing without cache", zap.Error(err))
			resultCache = nil
		}
	}
	defer resultCache.Close()

	var receipts *storage.ObjectStore
	if cfg.ObjectStoreEndpoint != "" && cfg.ObjectStoreBucket != "" {
		receipts, err = storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Warn("object store unavailable; receipts will not be archived", zap.Error(err))
			receipts = nil
		}
	}

	dataStore := store.New(pool, log)
	snapshotFeed := feed.New(dataStore, queueClient, log, cfg.FeedPollInterval)
	if err := snapshotFeed.Start(ctx); err != nil {
		log.Fatal("initial snapshot load failed", zap.Error(err))
	}
	defer snapshotFeed.Stop()

	h := &handlers.Handler{
		DB:       pool,
		Logger:   log,
		Config:   cfg,
		Feed:     snapshotFeed,
		Ledger:   ledger.NewService(dataStore),
		Cache:    resultCache,
		Queue:    queueClient,
		Receipts: receipts,
	}
	wsServer := ws.New(snapshotFeed, log, cfg)

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, wsServer, log, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("finance api ready", zap.String("base", "/api/admin"))
		log.Info("finance ws ready", zap.String("base", "/ws/admin"))
		log.Info("finance service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
