package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/outpost/internal/infra/storage"
)

// Store implements storage.Store on Redis. Each bucket is a hash of values
// plus a sorted set that remembers insertion order.
type Store struct {
	*Client
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps a connected client.
func NewStore(c *Client) *Store {
	return &Store{Client: c}
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	val, err := s.rdb.HGet(ctx, s.bucketKey(bucket), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget failed: %w", err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, value []byte) error {
	seq, err := s.rdb.Incr(ctx, s.orderSeqKey()).Result()
	if err != nil {
		return fmt.Errorf("incr failed: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.bucketKey(bucket), key, value)
		pipe.ZAddNX(ctx, s.orderKey(bucket), redis.Z{Score: float64(seq), Member: key})
		pipe.SAdd(ctx, s.bucketsKey(), bucket)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put failed: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, bucket string, value []byte) (int64, error) {
	// The sequence key is never deleted, so ids survive DropBucket.
	id, err := s.rdb.Incr(ctx, s.sequenceKey(bucket)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr failed: %w", err)
	}
	key := storage.FormatID(id)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.bucketKey(bucket), key, value)
		pipe.ZAdd(ctx, s.orderKey(bucket), redis.Z{Score: float64(id), Member: key})
		pipe.SAdd(ctx, s.bucketsKey(), bucket)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append failed: %w", err)
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.bucketKey(bucket), key)
		pipe.ZRem(ctx, s.orderKey(bucket), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, bucket string) ([]storage.Record, error) {
	keys, err := s.rdb.ZRange(ctx, s.orderKey(bucket), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.rdb.HMGet(ctx, s.bucketKey(bucket), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget failed: %w", err)
	}

	out := make([]storage.Record, 0, len(keys))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and HMGET.
			continue
		}
		out = append(out, storage.Record{Key: keys[i], Value: []byte(str)})
	}
	return out, nil
}

func (s *Store) Buckets(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.bucketsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}

	var out []string
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := s.rdb.Exists(ctx, s.bucketKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("exists failed: %w", err)
		}
		if n == 0 {
			// Emptied by deletes; forget it.
			s.rdb.SRem(ctx, s.bucketsKey(), name)
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) DropBucket(ctx context.Context, bucket string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.bucketKey(bucket), s.orderKey(bucket))
		pipe.SRem(ctx, s.bucketsKey(), bucket)
		return nil
	})
	if err != nil {
		return fmt.Errorf("drop failed: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
