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

	"acquisition_backend/internal/acquisition"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/internal/adapters/storage"
	"acquisition_backend/internal/events"
	apphttp "acquisition_backend/internal/http"
	"acquisition_backend/internal/http/router"
	"acquisition_backend/migrations"
	"acquisition_backend/platform/ai/moonshot"
	"acquisition_backend/platform/config"
	"acquisition_backend/platform/db"
	"acquisition_backend/platform/logger"
	"acquisition_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

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

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, migrations.FS)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	opts := acquisition.Options{
		MinConfidence: cfg.GetOCRMinConfidence(),
		EventBus:      eventBus,
		MaxImageBytes: cfg.GetMinIOMaxFileSize(),
		SessionTTL:    cfg.GetSessionTTL(),
	}

	sessions, closeSessions := initSessionStore(cfg, log)
	if closeSessions != nil {
		defer closeSessions()
	}
	opts.Sessions = sessions

	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure storage buckets", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBuckets(ctx)
		}); err != nil {
			log.Error("failed to ensure storage buckets exist", "error", err)
			panic("failed to ensure storage buckets exist: " + err.Error())
		}
		opts.Storage = storageSvc
		opts.PDFs = storageSvc
		log.Info(
			"storage service initialized",
			"documentsBucket", cfg.GetMinioBucketAcquisitionDocuments(),
			"contractPDFsBucket", cfg.GetMinioBucketContractPDFs(),
		)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; checklist uploads stay pending")
	}

	if cfg.IsOCREnabled() {
		opts.OCRModel = moonshot.NewModel(moonshot.Config{
			APIKey:          cfg.GetOCRAPIKey(),
			BaseURL:         cfg.GetOCRBaseURL(),
			Model:           cfg.GetOCRModel(),
			DisableThinking: true,
		})
		log.Info("document extraction enabled", "model", cfg.GetOCRModel())
	} else {
		log.Warn("OCR_API_KEY not configured; document extraction disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	acquisitionModule, err := acquisition.NewModule(pool, val, opts, log)
	if err != nil {
		log.Error("failed to initialize acquisition module", "error", err)
		panic("failed to initialize acquisition module: " + err.Error())
	}
	acquisitionModule.RegisterHandlers(eventBus)
	go acquisitionModule.RunSessionSweeper(ctx, 5*time.Minute)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			acquisitionModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initSessionStore(cfg config.SessionConfig, log *logger.Logger) (session.Store, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; capture sessions are kept in memory")
		return session.NewMemoryStore(cfg.GetSessionTTL()), nil
	}

	store, err := session.NewRedisStore(cfg.GetRedisURL(), cfg.GetSessionTTL())
	if err != nil {
		log.Error("failed to initialize redis session store", "error", err)
		return session.NewMemoryStore(cfg.GetSessionTTL()), nil
	}

	return store, func() {
		_ = store.Close()
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
