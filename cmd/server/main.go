package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/surveystack/internal/adapter/api"
	"github.com/V4T54L/surveystack/internal/adapter/api/handler"
	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/adapter/pii"
	"github.com/V4T54L/surveystack/internal/adapter/repository/memory"
	"github.com/V4T54L/surveystack/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/surveystack/internal/adapter/repository/redis"
	"github.com/V4T54L/surveystack/internal/adapter/repository/spool"
	"github.com/V4T54L/surveystack/internal/adapter/textgen"
	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/pkg/config"
	"github.com/V4T54L/surveystack/internal/pkg/logger"
	"github.com/V4T54L/surveystack/internal/usecase"
	"github.com/V4T54L/surveystack/internal/vertical"

	_ "github.com/lib/pq"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Database ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		// Requests fail with 503 until the store comes back.
		log.Warn("could not reach postgres on startup", "error", err)
	}

	tenantRepo := postgres.NewTenantRepository(db, log)
	questionRepo := postgres.NewQuestionRepository(db, log)
	subscriberRepo := postgres.NewSubscriberRepository(db)

	// --- Cache and analytics buffer ---
	var (
		cache    domain.TenantCache
		buffer   domain.EventBuffer
		pipeline *usecase.AdminPipelineUseCase
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, events will be spooled to disk", "error", err)
		}

		eventSpool, err := spool.New(cfg.SpoolDir, cfg.SpoolSegmentSize, cfg.SpoolMaxDiskSize, log)
		if err != nil {
			log.Error("failed to initialize event spool", "error", err)
			os.Exit(1)
		}
		defer eventSpool.Close()

		analyticsRepo := redisrepo.NewAnalyticsRepository(redisClient, log, cfg.AnalyticsStream, cfg.AnalyticsGroup, eventSpool)
		go analyticsRepo.StartHealthCheck(ctx, cfg.HealthCheckPeriod)

		cache = redisrepo.NewTenantCache(redisClient, log)
		buffer = analyticsRepo
		pipeline = usecase.NewAdminPipelineUseCase(analyticsRepo)
	} else {
		log.Warn("REDIS_URL not set, using in-process tenant cache and dropping analytics events")
		memCache := memory.NewTenantCache()
		go memCache.StartJanitor(ctx, janitorInterval)
		cache = memCache
	}

	// --- Use Cases ---
	resolver := usecase.NewResolveTenantUseCase(
		tenantRepo, cache, vertical.NewDeriver(vertical.DefaultTaxonomy()),
		log, m, cfg.TenantCacheTTL, cfg.StoreTimeout,
	)

	tracker := usecase.NewTrackEventUseCase(buffer, pii.NewRedactor(cfg.RedactionFields(), log), log, m)
	activity := handler.NewActivityBroker(ctx, log)
	tracker.SetObserver(activity)

	var generator domain.TextGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = textgen.NewOpenAIGenerator(textgen.Config{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIModel,
			BaseURL:           cfg.OpenAIBaseURL,
			RequestsPerSecond: cfg.AIRequestsPerSecond,
		}, log, m)
	} else {
		log.Info("OPENAI_API_KEY not set, surveys use the built-in question set")
	}

	survey := usecase.NewSurveyUseCase(questionRepo, postgres.NewResponseRepository(db), tenantRepo, generator, tracker, log)
	subscribe := usecase.NewSubscribeUseCase(subscriberRepo, tenantRepo, tracker, log)
	adminTenants := usecase.NewAdminTenantUseCase(tenantRepo, cache, log)

	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, admin API will reject every request")
	}

	// --- Servers ---
	publicServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(log, resolver, tracker, survey, subscribe),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// No write timeout: the activity feed is a long-lived stream.
	adminServer := &http.Server{
		Addr:        cfg.AdminAddr,
		Handler:     api.NewAdminRouter(log, cfg.AdminPassword, reg, adminTenants, pipeline, activity),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	for _, srv := range []struct {
		name   string
		server *http.Server
	}{{"public", publicServer}, {"admin", adminServer}} {
		go func() {
			log.Info("starting server", "server", srv.name, "addr", srv.server.Addr)
			if err := srv.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server failed", "server", srv.name, "error", err)
				stop() // Trigger shutdown on server error
			}
		}()
	}

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := publicServer.Shutdown(shutdownCtx); err != nil {
		log.Error("public server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
