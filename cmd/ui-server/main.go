//go:build !js && !wasm

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Its-donkey/dynamix-mint/internal/config"
	"github.com/Its-donkey/dynamix-mint/internal/telemetry"
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/ui/server"
	"github.com/Its-donkey/dynamix-mint/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	listen := flag.String("listen", "", "override ui.addr")
	assets := flag.String("assets", "", "override ui.assets_dir (main.wasm, wasm_exec.js, styles.css)")
	proxy := flag.Bool("proxy-upload", true, "serve /upload and /ipfs/ by proxying to client.upload_url")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.UI.Addr = *listen
	}
	if *assets != "" {
		cfg.UI.AssetsDir = *assets
	}

	logger, closeLog, err := logging.Open("ui-server", cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "dynamix-ui-server", cfg.Telemetry.Endpoint)
	if err != nil {
		logger.Error("server", "init telemetry", err, nil)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	err = server.Run(ctx, server.Options{
		Listen:    cfg.UI.Addr,
		AssetsDir: cfg.UI.AssetsDir,
		Boot: model.BootConfig{
			UploadURL:       cfg.Client.UploadURL,
			ContractAddress: cfg.Client.ContractAddress,
			GatewayURL:      cfg.UploadServer.GatewayURL,
			LogLevel:        cfg.Log.Level,
		},
		ProxyUpload: *proxy,
		Logger:      logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", "ui server failed", err, nil)
		os.Exit(1)
	}
}
