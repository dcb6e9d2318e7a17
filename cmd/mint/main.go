// Command mint submits one player card from the command line: it uploads the
// artwork and metadata, then sends the mint transaction through a node that
// holds the signing account (for example a local dev node).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Its-donkey/dynamix-mint/internal/config"
	"github.com/Its-donkey/dynamix-mint/internal/contract"
	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/telemetry"
	"github.com/Its-donkey/dynamix-mint/internal/upload"
	"github.com/Its-donkey/dynamix-mint/internal/wallet"
	"github.com/Its-donkey/dynamix-mint/internal/wallet/rpcprovider"
	"github.com/Its-donkey/dynamix-mint/logging"
)

type cliOptions struct {
	configPath string
	timeout    time.Duration
	imagePath  string
	draft      mint.Draft
}

func parseFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts cliOptions
	var position string
	fs.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline for the submission")
	fs.StringVar(&opts.imagePath, "image", "", "path to the card artwork")
	fs.StringVar(&opts.draft.DisplayName, "name", "", "player name")
	fs.StringVar(&position, "position", "", "Forward, Midfielder, Defender or Goalkeeper")
	fs.StringVar(&opts.draft.Nationality, "nationality", "", "player nationality")
	fs.IntVar(&opts.draft.GoalCount, "goals", 0, "goals scored")
	fs.IntVar(&opts.draft.MatchesPlayed, "matches", 0, "matches played")
	fs.IntVar(&opts.draft.TitlesWon, "world-cups", 0, "World Cups won")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	// Unknown positions are left empty and reported by validation.
	opts.draft.Position, _ = mint.ParsePosition(position)
	return opts, nil
}

func loadImage(path string) (*mint.Image, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &mint.Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

type report struct {
	Outcome     string            `json:"outcome"`
	AttemptID   string            `json:"attemptId"`
	Submitter   string            `json:"submitter,omitempty"`
	ContentID   string            `json:"contentId,omitempty"`
	MetadataURI string            `json:"metadataUri,omitempty"`
	TxRef       string            `json:"tx,omitempty"`
	Stage       string            `json:"stage,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func newReport(res mint.Result) report {
	out := report{
		Outcome:     res.Outcome.String(),
		AttemptID:   res.AttemptID,
		Submitter:   res.Submitter,
		ContentID:   res.ContentID,
		MetadataURI: res.MetadataURI,
		TxRef:       res.TxRef,
		Stage:       res.Stage.String(),
		Reason:      res.Reason,
	}
	var verr *mint.ValidationError
	if errors.As(res.Err, &verr) {
		out.Fields = verr.Fields
	}
	return out
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(2)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, closeLog, err := logging.Open("mint-cli", cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}

	res, err := run(opts, cfg, logger)
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(newReport(res))
	if !res.Succeeded() {
		os.Exit(1)
	}
}

func run(opts cliOptions, cfg config.Config, logger *logging.Logger) (mint.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "dynamix-mint-cli", cfg.Telemetry.Endpoint)
	if err != nil {
		return mint.Result{}, fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	image, err := loadImage(opts.imagePath)
	if err != nil {
		return mint.Result{}, err
	}
	opts.draft.Image = image

	provider, err := rpcprovider.Dial(ctx, cfg.Client.RPCURL, rpcprovider.Options{Logger: logger})
	if err != nil {
		return mint.Result{}, err
	}
	defer provider.Close()
	go provider.Watch(ctx, cfg.Client.PollInterval.Duration)

	manager := wallet.NewManager(provider, wallet.Options{Logger: logger})
	defer manager.Close()
	manager.Start(ctx)
	if session := manager.Connect(ctx); !session.Connected() {
		logger.Warn("wallet", "no account available", map[string]any{"status": session.Status.String(), "error": session.LastError})
	}

	minterOpts := contract.Options{Logger: logger, PollInterval: cfg.Client.PollInterval.Duration}
	if cfg.Client.WaitForReceipt {
		minterOpts.Receipts = ethclient.NewClient(provider.Client())
	}
	minter, err := contract.NewMinter(cfg.Client.ContractAddress, provider, minterOpts)
	if err != nil {
		return mint.Result{}, err
	}

	uploader := upload.NewClient(cfg.Client.UploadURL, upload.Options{Logger: logger, StrictCID: cfg.Client.StrictCID})
	pipeline := mint.NewPipeline(manager, uploader, minter, mint.Options{Logger: logger})
	return pipeline.Submit(ctx, opts.draft), nil
}
