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

	"territory_backend/internal/adapters/auditcache"
	"territory_backend/internal/scheduler"
	"territory_backend/internal/territory"
	"territory_backend/internal/territory/metrics"
	"territory_backend/platform/config"
	"territory_backend/platform/db"
	"territory_backend/platform/events"
	"territory_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "auditInterval", cfg.GetAuditInterval().String())

	if !cfg.IsSchedulerEnabled() {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	svc, _, err := territory.NewService(pool, eventBus, cfg, log)
	if err != nil {
		log.Error("failed to initialize territory service", "error", err)
		panic("failed to initialize territory service: " + err.Error())
	}

	cache, err := auditcache.Open(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure(), cfg.GetAuditCacheTTL())
	if err != nil {
		log.Error("failed to initialize audit cache", "error", err)
		panic("failed to initialize audit cache: " + err.Error())
	}
	defer func() { _ = cache.Close() }()
	svc.SetAuditCache(cache)

	auditMetrics, err := metrics.NewAuditMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("failed to register audit metrics", "error", err)
		panic("failed to register audit metrics: " + err.Error())
	}
	svc.SetAuditRecorder(auditMetrics)

	metricsServer := metrics.NewServer(cfg.GetMetricsAddr(), prometheus.DefaultGatherer)
	go func() {
		log.Info("metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	dispatcher, err := scheduler.NewAuditDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize audit dispatcher", "error", err)
		panic("failed to initialize audit dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
