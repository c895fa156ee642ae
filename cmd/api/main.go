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

	"leadscore_backend/internal/adapters/storage"
	"leadscore_backend/internal/events"
	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/internal/http/router"
	"leadscore_backend/internal/leadscoring"
	"leadscore_backend/internal/leadscoring/archive"
	"leadscore_backend/internal/leadscoring/intent"
	"leadscore_backend/internal/leadscoring/rules"
	"leadscore_backend/internal/leadscoring/service"
	"leadscore_backend/internal/leadscoring/session"
	"leadscore_backend/platform/ai/openai"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/db"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrMsg + ": " + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	health := apphttp.HealthChecks{}
	eventBus := events.NewInMemoryBus(log)

	var store session.Store = session.NewMemoryStore(cfg.GetSessionTTL())
	if cfg.IsRedisEnabled() {
		client, err := session.NewRedisClient(ctx, cfg.GetRedisURL())
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		store = session.NewRedisStore(client, cfg.GetSessionTTL())
		health["redis"] = apphttp.HealthCheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		log.Info("redis session store enabled", "ttl", cfg.GetSessionTTL())
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in memory and lost on restart")
	}

	var runs *archive.Repository
	if cfg.IsArchiveEnabled() {
		var closeDB func()
		runs, closeDB = initArchive(ctx, cfg, log, health)
		defer closeDB()
		archive.Subscribe(eventBus, runs)
	}

	rulesCfg, err := rules.LoadFile(cfg.GetRulesFile())
	if err != nil {
		panic("failed to load scoring rules: " + err.Error())
	}

	if cfg.GetOpenAIAPIKey() == "" {
		log.Warn("OPENAI_API_KEY not set, every lead will receive the fallback intent")
	}
	llm := openai.NewModel(openai.Config{
		APIKey:  cfg.GetOpenAIAPIKey(),
		BaseURL: cfg.GetOpenAIBaseURL(),
		Model:   cfg.GetOpenAIModel(),
	})
	classifier := intent.New(llm, intent.Options{
		Timeout:        cfg.GetIntentTimeout(),
		MaxAttempts:    cfg.GetIntentMaxAttempts(),
		RetryBaseDelay: cfg.GetIntentRetryBaseDelay(),
	}, log)

	// ========================================================================
	// Domain Modules
	// ========================================================================

	svc := service.New(
		session.NewManager(store),
		rules.NewScorer(rulesCfg),
		classifier,
		eventBus,
		log,
		service.Options{
			Concurrency:  cfg.GetScoringConcurrency(),
			ExportBucket: cfg.GetMinioBucketExports(),
		},
	)

	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage", "error", err)
			panic("failed to initialize storage: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "exports", cfg.GetMinioBucketExports())
		svc.SetExportStorage(storageSvc)
		log.Info("stored exports enabled", "bucket", cfg.GetMinioBucketExports())
	}

	scoringModule := leadscoring.NewModule(svc, validator.New(), cfg.GetMaxUploadBytes())
	if runs != nil {
		scoringModule.SetRunLister(runs)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules:  []apphttp.Module{scoringModule},
	}
	if len(health) > 0 {
		app.Health = health
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}

	// Let in-flight archive writes finish before the pool closes.
	eventBus.Wait()
	log.Info("server stopped")
}

// initArchive connects to Postgres, applies the embedded migrations and
// returns the run repository with a close func.
func initArchive(ctx context.Context, cfg *config.Config, log *logger.Logger, health apphttp.HealthChecks) (*archive.Repository, func()) {
	pool, err := connectWithRetry(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	sqlDB := db.SQLDB(pool)

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, sqlDB, archive.Migrations, archive.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	health["postgres"] = apphttp.HealthCheckFunc(pool.Ping)

	return archive.NewRepository(sqlDB), func() {
		_ = sqlDB.Close()
		pool.Close()
	}
}

func connectWithRetry(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
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
