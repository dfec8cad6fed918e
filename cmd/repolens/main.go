package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/repolens/repolens/internal/adapter/gitcli"
	rlhttp "github.com/repolens/repolens/internal/adapter/http"
	"github.com/repolens/repolens/internal/adapter/memory"
	rlnats "github.com/repolens/repolens/internal/adapter/nats"
	"github.com/repolens/repolens/internal/adapter/otel"
	"github.com/repolens/repolens/internal/adapter/postgres"
	"github.com/repolens/repolens/internal/adapter/ristretto"
	"github.com/repolens/repolens/internal/adapter/ws"
	"github.com/repolens/repolens/internal/analyzer"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/detector"
	"github.com/repolens/repolens/internal/git"
	"github.com/repolens/repolens/internal/logger"
	"github.com/repolens/repolens/internal/middleware"
	"github.com/repolens/repolens/internal/port/database"
	"github.com/repolens/repolens/internal/port/eventbus"
	"github.com/repolens/repolens/internal/service"
	"github.com/repolens/repolens/internal/vault"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	defer closeLogger.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"sync_interval", cfg.Sync.Interval,
		"repos_dir", cfg.Sync.ReposDir,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Persistence ---
	var store database.Store
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
		slog.Info("postgres connected")
	} else {
		store = memory.NewStore()
		slog.Info("using in-memory store, metadata will not survive restarts")
	}

	// --- Eventing ---
	var bus eventbus.Publisher = eventbus.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := rlnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nc.Close() }()
		bus = nc
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}
	hub := ws.NewHub()

	// --- Cache ---
	metaCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer metaCache.Close()

	// --- Credential vault and git ---
	keyVault, err := vault.New(cfg.Sync.KeysDir)
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	gitClient := gitcli.NewClient(git.NewPool(cfg.Sync.MaxConcurrent))
	locks := git.NewLocks()

	// --- Services ---
	det := detector.New(analyzer.Default(), log, detector.Options{
		FileWorkers:     cfg.Analysis.FileWorkers,
		MaxFileSize:     cfg.Analysis.MaxFileSize,
		MaxDependencies: cfg.Analysis.MaxDependencies,
	})
	registry := service.NewRegistryService(store, keyVault, cfg.Sync.ReposDir)
	analysisSvc := service.NewAnalysisService(store, det, metaCache, hub, bus, metrics, cfg.Cache.TTL)
	syncSvc := service.NewSyncService(store, gitClient, keyVault, locks, analysisSvc, hub, bus, metrics, cfg.Sync.ReposDir, cfg.Sync.OpTimeout)

	scheduler := service.NewScheduler(syncSvc, cfg.Sync.Interval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// --- HTTP ---
	handlers := &rlhttp.Handlers{
		Registry: registry,
		Sync:     syncSvc,
		Analysis: analysisSvc,
	}

	r := chi.NewRouter()
	r.Use(rlhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rlhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(rlhttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	rlhttp.MountRoutes(r, handlers, hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
