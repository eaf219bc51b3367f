package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/surveystack/internal/adapter/repository/redis"
	"github.com/V4T54L/surveystack/internal/pkg/config"
	"github.com/V4T54L/surveystack/internal/pkg/logger"
	"github.com/V4T54L/surveystack/internal/usecase"

	_ "github.com/lib/pq"
)

const processingInterval = 1 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting analytics consumer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL == "" {
		log.Error("REDIS_URL is required for the consumer")
		os.Exit(1)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName := cfg.ConsumerName
	if consumerName == "" {
		if consumerName, err = os.Hostname(); err != nil {
			log.Warn("could not get hostname for consumer name, using default", "error", err)
			consumerName = "consumer-default"
		}
	}

	buffer := redisrepo.NewAnalyticsRepository(redisClient, log, cfg.AnalyticsStream, cfg.AnalyticsGroup, nil)
	sink := postgres.NewAnalyticsRepository(db, log)
	m := metrics.New(prometheus.DefaultRegisterer)

	processor := usecase.NewProcessEventsUseCase(buffer, sink, log, m, cfg.AnalyticsGroup, consumerName, cfg.SinkRetryCount, cfg.SinkRetryDelay)

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = time.Minute
	}

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()
	reclaim := time.NewTicker(claimMinIdle)
	defer reclaim.Stop()

	log.Info("consumer started, processing events...", "group", cfg.AnalyticsGroup, "consumer", consumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := processor.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				log.Error("error processing batch", "error", err)
			}
		case <-reclaim.C:
			// Events delivered to a consumer that died before acknowledging them.
			n, err := processor.ReclaimIdle(ctx, buffer, claimMinIdle)
			if err != nil && ctx.Err() == nil {
				log.Error("error reclaiming idle events", "error", err)
			} else if n > 0 {
				log.Info("reclaimed idle events", "count", n)
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down consumer loop")
			break Loop
		}
	}

	log.Info("consumer shut down gracefully")
}
