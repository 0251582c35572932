package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection shared by the key-value store.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	Namespace string `yaml:"namespace"`
}

// NewClient creates a new Redis client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "outpost"
	}
	return &Client{rdb: rdb, namespace: namespace}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) bucketKey(bucket string) string {
	return fmt.Sprintf("%s:bucket:%s", c.namespace, bucket)
}

func (c *Client) orderKey(bucket string) string {
	return fmt.Sprintf("%s:order:%s", c.namespace, bucket)
}

func (c *Client) sequenceKey(bucket string) string {
	return fmt.Sprintf("%s:seq:%s", c.namespace, bucket)
}

// orderSeqKey scores Put ordering; Append buckets score by id instead.
func (c *Client) orderSeqKey() string {
	return c.namespace + ":order-seq"
}

func (c *Client) bucketsKey() string {
	return c.namespace + ":buckets"
}
