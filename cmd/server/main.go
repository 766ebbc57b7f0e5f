// Command docstore-server starts the document store HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpue/cflux-sub004/internal/config"
	"github.com/mpue/cflux-sub004/internal/limiter"
	"github.com/mpue/cflux-sub004/internal/migrate"
	"github.com/mpue/cflux-sub004/internal/render"
	"github.com/mpue/cflux-sub004/internal/repository/postgres"
	"github.com/mpue/cflux-sub004/internal/server/httpapi"
	"github.com/mpue/cflux-sub004/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	nodeRepo := postgres.NewNodeRepo(db)
	versionRepo := postgres.NewVersionRepo(db)
	permRepo := postgres.NewPermissionRepo(db)
	snapshotRepo := postgres.NewSnapshotRepo(db)

	lim := limiter.NewPG(pool, cfg.RateLimitWindow, cfg.RateLimitMax)

	// Services
	treeSvc := service.NewTreeService(nodeRepo)
	versionSvc := service.NewVersionService(nodeRepo, versionRepo)
	permSvc := service.NewPermissionService(permRepo)
	importSvc := service.NewImportService(nodeRepo, render.NewMarkdown(), logger)
	backupSvc := service.NewBackupService(snapshotRepo, logger)

	api := httpapi.New(treeSvc, versionSvc, permSvc, importSvc, backupSvc, lim, logger, cfg.MaxImportBytes)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
