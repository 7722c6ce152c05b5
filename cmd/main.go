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

	"github.com/joho/godotenv"

	"github.com/fathima-sithara/sync-service/internal/api"
	"github.com/fathima-sithara/sync-service/internal/auth"
	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/config"
	"github.com/fathima-sithara/sync-service/internal/events"
	"github.com/fathima-sithara/sync-service/internal/kafka"
	"github.com/fathima-sithara/sync-service/internal/logger"
	"github.com/fathima-sithara/sync-service/internal/metrics"
	"github.com/fathima-sithara/sync-service/internal/repository"
	"github.com/fathima-sithara/sync-service/internal/service"
	"github.com/fathima-sithara/sync-service/internal/storage"
	syncengine "github.com/fathima-sithara/sync-service/internal/sync"
	"github.com/fathima-sithara/sync-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logg, err := logger.New(logger.Config{Development: cfg.App.Env == "development"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		logg.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	repo := repository.NewMongoRepository(mc.Database(cfg.Mongo.DB), logg)

	rdb, err := broadcast.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logg.Fatalw("redis init", "err", err)
	}
	defer rdb.Close()
	store := broadcast.NewRedisStore(rdb, cfg.Redis.Prefix, logg)

	engine := syncengine.NewEngine(repo, store, logg, syncengine.Options{
		Debounce:       cfg.Sync.Debounce(),
		BaseBackoff:    cfg.Sync.BaseBackoff(),
		MaxAttempts:    cfg.Sync.MaxAttempts,
		ResyncInterval: cfg.Sync.ResyncInterval(),
	})
	defer engine.Close()

	var pub *events.Publisher
	if cfg.NATS.URL != "" {
		pub, err = events.NewPublisher(cfg.NATS.URL, logg)
		if err != nil {
			logg.Fatalw("nats init", "err", err)
		}
		defer pub.Close()
	}

	var bus service.SyncBus
	var kprod *kafka.Producer
	var kcons *kafka.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		kprod = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SyncTopic)
		defer kprod.Close()
		bus = kprod
		kcons = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.SyncTopic, cfg.Kafka.GroupID, logg)
		defer kcons.Close()
	}

	var svcEvents service.EventPublisher
	if pub != nil {
		svcEvents = pub
	}
	svc := service.NewMessageService(repo, engine, svcEvents, bus, logg)

	var media *storage.S3Store
	if cfg.S3.Bucket != "" {
		media, err = storage.NewS3Store(context.Background(), cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead)
		if err != nil {
			logg.Fatalw("s3 init", "err", err)
		}
	}

	validator, err := auth.NewValidator(cfg.JWT)
	if err != nil {
		logg.Fatalw("jwt init", "err", err)
	}

	wsrv := ws.NewServer(svc, store, logg)
	app := api.NewServer(api.NewHandlers(svc, media), wsrv, validator, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	if kcons != nil {
		go kcons.Run(ctx, engine.Request)
	}

	go func() {
		addr := ":" + cfg.App.PortString()
		logg.Infow("sync-service started", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logg.Fatalw("server listen", "err", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Warnw("metrics listen", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	logg.Info("sync-service stopped")
}
