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

	"github.com/joho/godotenv"

	"github.com/jacksonlee411/assetdesk/internal/backup"
	"github.com/jacksonlee411/assetdesk/internal/server"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/persistence"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		fatalf("load env: %v", err)
	}
	log := logger.Init(logger.ConfigFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// loadDotEnv reads path, or .env when path is blank. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func run(ctx context.Context, log logger.Logger) error {
	cfg, err := server.ConfigFromEnv()
	if err != nil {
		return err
	}

	if cfg.Store == server.StorePostgres && cfg.MigrateOnStart {
		if err := persistence.ApplyMigrations(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	stores, err := server.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	backups := backup.NewService(stores.Assets, cfg.BackupDir,
		backup.WithRestorer(stores.Restorer),
		backup.WithPreviewPurger(stores.Purger),
		backup.WithLogger(log.With("component", "backup")),
	)
	sched, err := backup.NewScheduler(backups, cfg.BackupSchedule, log.With("component", "scheduler"))
	if err != nil {
		return err
	}
	sched.Start()

	h, err := server.NewHandler(ctx, cfg, stores, backups, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.Store, "redis_previews", cfg.RedisAddr != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler stop", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
