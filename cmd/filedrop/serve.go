package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"file-drop/internal/audit"
	"file-drop/internal/config"
	"file-drop/internal/logging"
	"file-drop/internal/server"
	"file-drop/internal/storage"
	"file-drop/internal/telemetry"
)

func buildInfo() server.BuildInfo {
	v, c := version, commit
	if v == "" {
		v = getenvDefault("FILEDROP_VERSION", "dev")
	}
	if c == "" {
		c = getenvDefault("FILEDROP_COMMIT", "unknown")
	}
	return server.BuildInfo{Version: v, Commit: c}
}

// loadConfig reads the config file and environment, then applies flag
// overrides and validates the result again.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("dir") {
		cfg.UploadDir = cmd.String("dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, logging.Format(cfg.Log.Format))
	logging.SetDefault(logger)
	build := buildInfo()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		ExportEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Version:        build.Version,
	})
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", nil, err)
		}
	}()

	store, err := storage.New(cfg.UploadDir, cfg.MaxFileBytes)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Addr:            cfg.Addr,
		Store:           store,
		MaxRequestBytes: cfg.MaxRequestBytes,
		RateLimit:       server.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		Build:           build,
		Logger:          logger,
	}

	if cfg.Mirror.Enabled() {
		mirror, err := storage.NewMirror(ctx, storage.MirrorOptions{
			Endpoint:  cfg.Mirror.Endpoint,
			AccessKey: cfg.Mirror.AccessKey,
			SecretKey: cfg.Mirror.SecretKey,
			Bucket:    cfg.Mirror.Bucket,
		})
		if err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
		srvCfg.Mirror = mirror
		logger.Info("mirror enabled", map[string]any{"endpoint": cfg.Mirror.Endpoint, "bucket": mirror.Bucket()})
	}

	if cfg.Audit.Enabled() {
		db, err := audit.OpenDB(cfg.Audit.DatabaseURL)
		if err != nil {
			return fmt.Errorf("audit db: %w", err)
		}
		defer func() { _ = db.Close() }()

		logger.Info("running migrations", nil)
		if err := audit.RunMigrations(db); err != nil {
			return fmt.Errorf("audit migrations: %w", err)
		}
		srvCfg.Audit = audit.NewRecorder(db)
		logger.Info("audit trail enabled", nil)
	}

	srv := server.New(srvCfg)

	// Start the HTTP server in a background goroutine so we can wait for signals.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting", map[string]any{
			"addr":        cfg.Addr,
			"upload_dir":  store.Dir(),
			"max_file":    humanize.IBytes(uint64(cfg.MaxFileBytes)),
			"max_request": humanize.IBytes(uint64(cfg.MaxRequestBytes)),
			"version":     build.Version,
			"commit":      build.Commit,
		})
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]any{"signal": sig.String()})
	case <-ctx.Done():
		logger.Info("shutting down", map[string]any{"reason": ctx.Err().Error()})
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete", nil)
	return nil
}
