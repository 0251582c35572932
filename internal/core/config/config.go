package config

import (
	"time"

	"github.com/vietddude/outpost/internal/infra/storage/backend"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"   envPrefix:"SERVER_"`
	Upstream UpstreamConfig `yaml:"upstream" envPrefix:"UPSTREAM_"`
	Storage  backend.Config `yaml:"storage"  envPrefix:"STORAGE_"`
	Cache    CacheConfig    `yaml:"cache"    envPrefix:"CACHE_"`
	Sync     SyncConfig     `yaml:"sync"     envPrefix:"SYNC_"`
	Push     PushConfig     `yaml:"push"     envPrefix:"PUSH_"`
	Logging  LoggingConfig  `yaml:"logging"  envPrefix:"LOG_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int `yaml:"port"       env:"PORT"       validate:"gte=0,lte=65535"`
	AdminPort int `yaml:"admin_port" env:"ADMIN_PORT" validate:"gte=0,lte=65535"`
}

// UpstreamConfig describes the origin that plays the role of "the network".
type UpstreamConfig struct {
	URL           string        `yaml:"url"            env:"URL"            validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout"        env:"TIMEOUT"`
	HealthPath    string        `yaml:"health_path"    env:"HEALTH_PATH"`
	ProbeInterval time.Duration `yaml:"probe_interval" env:"PROBE_INTERVAL"`
	ProbeJitter   float64       `yaml:"probe_jitter"   env:"PROBE_JITTER"   validate:"gte=0,lte=1"`
}

// CacheConfig holds region versions and the static shell manifest.
type CacheConfig struct {
	ShellVersion        int      `yaml:"shell_version"          env:"SHELL_VERSION" validate:"gte=1"`
	ImageVersion        int      `yaml:"image_version"          env:"IMAGE_VERSION" validate:"gte=1"`
	DataVersion         int      `yaml:"data_version"           env:"DATA_VERSION"  validate:"gte=1"`
	Manifest            []string `yaml:"manifest"               env:"MANIFEST"      validate:"dive,startswith=/"`
	ManifestFile        string   `yaml:"manifest_file"          env:"MANIFEST_FILE"`
	OfflineDocument     string   `yaml:"offline_document"       env:"OFFLINE_DOCUMENT" validate:"startswith=/"`
	APIPrefix           string   `yaml:"api_prefix"             env:"API_PREFIX"    validate:"startswith=/"`
	PopulateShellOnMiss bool     `yaml:"populate_shell_on_miss" env:"POPULATE_SHELL_ON_MISS"`
	IgnoreQueryParams   []string `yaml:"ignore_query_params"    env:"IGNORE_QUERY_PARAMS"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes"         env:"MAX_BODY_BYTES" validate:"gte=0"`
}

// SyncConfig controls outbox replay.
type SyncConfig struct {
	Tag      string        `yaml:"tag"      env:"TAG"`
	Endpoint string        `yaml:"endpoint" env:"ENDPOINT"` // defaults to <api_prefix>entries
	Timeout  time.Duration `yaml:"timeout"  env:"TIMEOUT"`
}

// PushConfig holds notification defaults.
type PushConfig struct {
	DefaultTitle string `yaml:"default_title" env:"DEFAULT_TITLE"`
	Icon         string `yaml:"icon"          env:"ICON"`
	Badge        string `yaml:"badge"         env:"BADGE"`
	ClickURL     string `yaml:"click_url"     env:"CLICK_URL"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"  validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"omitempty,oneof=json text"`
}
