package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/repo"
	"github.com/noah-isme/backend-pos/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	connOpt := asynq.RedisClientOpt{Addr: redisOpts.Addr, Username: redisOpts.Username, Password: redisOpts.Password, DB: redisOpts.DB}

	registry := prometheus.NewRegistry()
	domainMetrics := obs.NewDomainMetrics(registry)

	handlers := tasks.Handlers{
		Products: repo.ProductsRepo{DB: pool},
		Sessions: repo.SessionsRepo{DB: pool},
		Gauge:    domainMetrics.LowStockProducts,
		Logger:   logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeLowStockCheck, handlers.HandleLowStockCheck)
	mux.HandleFunc(tasks.TypeSessionCleanup, handlers.HandleSessionCleanup)

	scheduler := asynq.NewScheduler(connOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register("@every 1h", tasks.NewSessionCleanupTask()); err != nil {
		logger.Fatal().Err(err).Msg("register session cleanup schedule")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	defer scheduler.Shutdown()

	srv := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			tasks.QueueDefault:     4,
			tasks.QueueMaintenance: 1,
		},
	})

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
