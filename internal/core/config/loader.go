package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OUTPOST_"

// DefaultManifest is the static shell precached at install time.
var DefaultManifest = []string{"/", "/index.html", "/offline.html", "/manifest.json"}

// Load reads configuration from a YAML file, applies OUTPOST_* environment
// overrides and validates the result.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse env overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AdminPort == 0 {
		cfg.Server.AdminPort = 9090
	}

	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}
	if cfg.Upstream.HealthPath == "" {
		cfg.Upstream.HealthPath = "/"
	}
	if cfg.Upstream.ProbeInterval == 0 {
		cfg.Upstream.ProbeInterval = 10 * time.Second
	}
	cfg.Upstream.URL = strings.TrimRight(cfg.Upstream.URL, "/")

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "sqlite://outpost.db"
	}

	if cfg.Cache.ShellVersion == 0 {
		cfg.Cache.ShellVersion = 1
	}
	if cfg.Cache.ImageVersion == 0 {
		cfg.Cache.ImageVersion = 1
	}
	if cfg.Cache.DataVersion == 0 {
		cfg.Cache.DataVersion = 1
	}
	if len(cfg.Cache.Manifest) == 0 && cfg.Cache.ManifestFile == "" {
		cfg.Cache.Manifest = append([]string(nil), DefaultManifest...)
	}
	if cfg.Cache.OfflineDocument == "" {
		cfg.Cache.OfflineDocument = "/offline.html"
	}
	if cfg.Cache.APIPrefix == "" {
		cfg.Cache.APIPrefix = "/api/"
	}
	if !strings.HasSuffix(cfg.Cache.APIPrefix, "/") {
		cfg.Cache.APIPrefix += "/"
	}
	if cfg.Cache.IgnoreQueryParams == nil {
		cfg.Cache.IgnoreQueryParams = []string{"^utm_", "^fbclid$"}
	}
	if cfg.Cache.MaxBodyBytes == 0 {
		cfg.Cache.MaxBodyBytes = 10 << 20
	}

	if cfg.Sync.Tag == "" {
		cfg.Sync.Tag = "sync-entries"
	}
	if cfg.Sync.Endpoint == "" {
		cfg.Sync.Endpoint = cfg.Cache.APIPrefix + "entries"
	}
	if cfg.Sync.Timeout == 0 {
		cfg.Sync.Timeout = 15 * time.Second
	}

	if cfg.Push.DefaultTitle == "" {
		cfg.Push.DefaultTitle = "Notification"
	}
	if cfg.Push.Icon == "" {
		cfg.Push.Icon = "/icon-192.png"
	}
	if cfg.Push.Badge == "" {
		cfg.Push.Badge = cfg.Push.Icon
	}
	if cfg.Push.ClickURL == "" {
		cfg.Push.ClickURL = "/"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
