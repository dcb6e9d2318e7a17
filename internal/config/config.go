// Package config loads runtime settings for the minting binaries from an
// optional JSON file overlaid with DYNAMIX_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultUploadURL    = "http://localhost:3001"
	defaultRPCURL       = "http://127.0.0.1:8545"
	defaultUploadAddr   = "127.0.0.1:3001"
	defaultUIAddr       = "127.0.0.1:8080"
	defaultAssetsDir    = "web"
	defaultBadgerDir    = "data/pinstore"
	defaultMaxUploadMB  = 12
	defaultPollInterval = 2 * time.Second
)

// Store drivers for the upload service.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Duration reads "2s"-style strings from JSON and the environment.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ClientConfig configures the mint pipeline collaborators.
type ClientConfig struct {
	UploadURL       string   `json:"upload_url" env:"DYNAMIX_UPLOAD_URL"`
	RPCURL          string   `json:"rpc_url" env:"DYNAMIX_RPC_URL"`
	ContractAddress string   `json:"contract_address" env:"DYNAMIX_CONTRACT_ADDRESS"`
	StrictCID       bool     `json:"strict_cid" env:"DYNAMIX_STRICT_CID"`
	WaitForReceipt  bool     `json:"wait_for_receipt" env:"DYNAMIX_WAIT_FOR_RECEIPT"`
	PollInterval    Duration `json:"poll_interval" env:"DYNAMIX_POLL_INTERVAL"`
}

// UploadServerConfig configures the reference upload service.
type UploadServerConfig struct {
	Addr        string `json:"addr" env:"DYNAMIX_UPLOAD_ADDR"`
	Store       string `json:"store" env:"DYNAMIX_STORE"`
	BadgerDir   string `json:"badger_dir" env:"DYNAMIX_BADGER_DIR"`
	PostgresDSN string `json:"postgres_dsn" env:"DYNAMIX_POSTGRES_DSN"`
	MaxUploadMB int    `json:"max_upload_mb" env:"DYNAMIX_MAX_UPLOAD_MB"`
	GatewayURL  string `json:"gateway_url" env:"DYNAMIX_GATEWAY_URL"`
}

// UIConfig configures the static host for the browser bundle.
type UIConfig struct {
	Addr      string `json:"addr" env:"DYNAMIX_UI_ADDR"`
	AssetsDir string `json:"assets_dir" env:"DYNAMIX_ASSETS_DIR"`
}

// LogConfig selects the log level and an optional rotating log directory.
type LogConfig struct {
	Level string `json:"level" env:"DYNAMIX_LOG_LEVEL"`
	Dir   string `json:"dir" env:"DYNAMIX_LOG_DIR"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint string `json:"endpoint" env:"DYNAMIX_OTEL_ENDPOINT"`
}

// Config is the combined runtime configuration.
type Config struct {
	Client       ClientConfig       `json:"client"`
	UploadServer UploadServerConfig `json:"upload_server"`
	UI           UIConfig           `json:"ui"`
	Log          LogConfig          `json:"log"`
	Telemetry    TelemetryConfig    `json:"telemetry"`
}

// Default returns the settings used for local development.
func Default() Config {
	return Config{
		Client: ClientConfig{
			UploadURL:    defaultUploadURL,
			RPCURL:       defaultRPCURL,
			StrictCID:    true,
			PollInterval: Duration{defaultPollInterval},
		},
		UploadServer: UploadServerConfig{
			Addr:        defaultUploadAddr,
			Store:       StoreMemory,
			BadgerDir:   defaultBadgerDir,
			MaxUploadMB: defaultMaxUploadMB,
		},
		UI: UIConfig{
			Addr:      defaultUIAddr,
			AssetsDir: defaultAssetsDir,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the JSON file at path (if any) over the defaults, then applies
// environment overrides. A missing file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalise()
	return cfg, cfg.Validate()
}

func (c *Config) normalise() {
	c.Client.UploadURL = strings.TrimRight(strings.TrimSpace(c.Client.UploadURL), "/")
	c.UploadServer.Store = strings.ToLower(strings.TrimSpace(c.UploadServer.Store))
	if c.UploadServer.Store == "" {
		c.UploadServer.Store = StoreMemory
	}
	if c.UploadServer.MaxUploadMB <= 0 {
		c.UploadServer.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Client.PollInterval.Duration <= 0 {
		c.Client.PollInterval = Duration{defaultPollInterval}
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.UploadServer.Store {
	case StoreMemory:
	case StoreBadger:
		if strings.TrimSpace(c.UploadServer.BadgerDir) == "" {
			errs = append(errs, errors.New("upload_server.badger_dir is required for the badger store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.UploadServer.PostgresDSN) == "" {
			errs = append(errs, errors.New("upload_server.postgres_dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("upload_server.store %q is not one of memory, badger, postgres", c.UploadServer.Store))
	}
	if c.Client.UploadURL == "" {
		errs = append(errs, errors.New("client.upload_url is required"))
	}
	return errors.Join(errs...)
}
