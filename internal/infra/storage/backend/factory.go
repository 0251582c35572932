package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	redisclient "github.com/vietddude/outpost/internal/infra/redis"
	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/infra/storage/memory"
	"github.com/vietddude/outpost/internal/infra/storage/sqldb"
)

// Config selects and tunes the durable store.
//
//	sqlite://data/outpost.db    on-device file (default)
//	postgres://user@host/db     shared database through pgx
//	pq://user@host/db           shared database through lib/pq
//	redis://host:6379/0         networked key-value store
//	memory://                   process-local, not durable
type Config struct {
	DSN           string `yaml:"dsn"            env:"DSN"            validate:"required"`
	MaxConns      int    `yaml:"max_conns"      env:"MAX_CONNS"`
	MinConns      int    `yaml:"min_conns"      env:"MIN_CONNS"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
}

// Scheme returns the normalized DSN scheme; a bare path means sqlite.
func (c Config) Scheme() (string, error) {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		return "", fmt.Errorf("storage dsn is required")
	}
	if !strings.Contains(dsn, "://") {
		return "sqlite", nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid storage dsn: %w", err)
	}
	return normalizeScheme(parsed.Scheme), nil
}

// NewOpener validates the DSN and returns an opener for storage.NewHandle.
func NewOpener(cfg Config) (storage.Opener, error) {
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}
	if factory, ok := lookup(scheme); ok {
		return func(ctx context.Context) (storage.Store, error) { return factory(ctx, cfg) }, nil
	}

	switch scheme {
	case "sqlite", "file":
		path := sqlitePath(cfg.DSN)
		if path == "" {
			return nil, fmt.Errorf("sqlite dsn needs a path: %s", cfg.DSN)
		}
		return sqlOpener(sqldb.Config{Driver: "sqlite", DSN: sqldb.SQLiteDSN(path)}), nil
	case "postgres", "postgresql", "pgx":
		dsn := cfg.DSN
		if scheme == "pgx" {
			dsn = "postgres://" + strings.TrimPrefix(dsn, "pgx://")
		}
		return sqlOpener(sqldb.Config{Driver: "pgx", DSN: dsn, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}), nil
	case "pq":
		dsn := "postgres://" + strings.TrimPrefix(cfg.DSN, "pq://")
		return sqlOpener(sqldb.Config{Driver: "postgres", DSN: dsn, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}), nil
	case "redis", "rediss":
		return func(ctx context.Context) (storage.Store, error) {
			client, err := redisclient.NewClient(ctx, redisclient.Config{URL: cfg.DSN, Password: cfg.RedisPassword})
			if err != nil {
				return nil, err
			}
			return redisclient.NewStore(client), nil
		}, nil
	case "memory", "mem", "inmem":
		return func(ctx context.Context) (storage.Store, error) {
			return memory.NewMemoryStorage(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", scheme)
	}
}

func sqlOpener(cfg sqldb.Config) storage.Opener {
	return func(ctx context.Context) (storage.Store, error) {
		return sqldb.Open(ctx, cfg)
	}
}

func sqlitePath(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	for _, prefix := range []string{"sqlite://", "file://"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
