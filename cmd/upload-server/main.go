package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Its-donkey/dynamix-mint/internal/config"
	"github.com/Its-donkey/dynamix-mint/internal/pinstore"
	"github.com/Its-donkey/dynamix-mint/internal/telemetry"
	"github.com/Its-donkey/dynamix-mint/internal/uploadserver"
	"github.com/Its-donkey/dynamix-mint/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	addr := flag.String("listen", "", "override upload_server.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.UploadServer.Addr = *addr
	}

	logger, closeLog, err := logging.Open("upload-server", cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("server", "upload server failed", err, nil)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "dynamix-upload-server", cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	store, err := pinstore.Open(ctx, cfg.UploadServer, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	srv := uploadserver.New(uploadserver.Options{
		Store:          store,
		Logger:         logger,
		MaxUploadBytes: int64(cfg.UploadServer.MaxUploadMB) << 20,
		GatewayURL:     cfg.UploadServer.GatewayURL,
	})

	httpServer := &http.Server{
		Addr:    cfg.UploadServer.Addr,
		Handler: srv.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server", "upload server started", map[string]any{"addr": cfg.UploadServer.Addr, "store": cfg.UploadServer.Store})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server", "shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server", "stopped", nil)
	return nil
}
