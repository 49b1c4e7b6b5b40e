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
	"territory_backend/internal/adapters/storage"
	"territory_backend/internal/email"
	apphttp "territory_backend/internal/http"
	"territory_backend/internal/http/router"
	"territory_backend/internal/notification"
	"territory_backend/internal/territory"
	"territory_backend/internal/territory/metrics"
	"territory_backend/platform/config"
	"territory_backend/platform/db"
	"territory_backend/platform/events"
	"territory_backend/platform/logger"
	"territory_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	notification.New(email.NewSender(cfg), log).RegisterHandlers(eventBus)

	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	territoryModule, err := territory.NewModule(pool, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize territory module", "error", err)
		panic("failed to initialize territory module: " + err.Error())
	}

	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "visit-proofs", cfg.GetMinioBucketVisitProofs())
		territoryModule.SetStorage(storageSvc, cfg.GetMinioBucketVisitProofs())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; proof-of-visit uploads disabled")
	}

	if cfg.IsSchedulerEnabled() {
		cache, err := auditcache.Open(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure(), cfg.GetAuditCacheTTL())
		if err != nil {
			log.Error("failed to initialize audit cache", "error", err)
			panic("failed to initialize audit cache: " + err.Error())
		}
		defer func() { _ = cache.Close() }()
		territoryModule.Service().SetAuditCache(cache)
	} else {
		log.Warn("REDIS_URL not configured; latest audit report is not retained")
	}

	auditMetrics, err := metrics.NewAuditMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("failed to register audit metrics", "error", err)
		panic("failed to register audit metrics: " + err.Error())
	}
	territoryModule.Service().SetAuditRecorder(auditMetrics)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			territoryModule,
		},
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.GetMetricsAddr(), prometheus.DefaultGatherer)

	srvErr := make(chan error, 2)
	go func() {
		log.Info("server listening", "addr", server.Addr)
		srvErr <- server.ListenAndServe()
	}()
	go func() {
		log.Info("metrics listening", "addr", metricsServer.Addr)
		srvErr <- metricsServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", "error", err)
	}
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
