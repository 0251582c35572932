// Package cache keeps named, versioned regions of response snapshots on top of
// the durable store. Regions are only ever evicted whole, on activation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

const (
	// BucketPrefix marks store buckets owned by the cache. Activation never
	// touches buckets without it.
	BucketPrefix = "cache:"

	stagingSuffix = "~staging"
)

// Store manages every cache region.
type Store struct {
	store storage.Store
	keys  *Keyer
	now   func() time.Time
	log   *slog.Logger
}

// New creates a cache over an opened store. keys may be nil for exact URL keys.
func New(store storage.Store, keys *Keyer) *Store {
	if keys == nil {
		keys = &Keyer{}
	}
	return &Store{
		store: store,
		keys:  keys,
		now:   time.Now,
		log:   slog.Default().With("component", "cache"),
	}
}

// Keys returns the request keyer.
func (s *Store) Keys() *Keyer { return s.keys }

// Region is a handle on one named region. Regions are created lazily on first write.
type Region struct {
	name   string
	bucket string
	s      *Store
}

// Open returns a handle for region name.
func (s *Store) Open(name string) (*Region, error) {
	if name == "" || strings.Contains(name, stagingSuffix) {
		return nil, fmt.Errorf("invalid region name %q", name)
	}
	return &Region{name: name, bucket: BucketPrefix + name, s: s}, nil
}

// Staging returns the scratch region used to build name before promotion.
func (s *Store) Staging(name string) *Region {
	return &Region{name: name + stagingSuffix, bucket: BucketPrefix + name + stagingSuffix, s: s}
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

// Get returns the stored snapshot for key, or nil when absent.
func (r *Region) Get(ctx context.Context, key string) (*domain.Snapshot, error) {
	data, err := r.s.store.Get(ctx, r.bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.CacheLookups.WithLabelValues(r.name, "miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "cache get", Err: err}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Treat an unreadable copy as a miss; the next put replaces it.
		r.s.log.Warn("Dropping unreadable cache record", "region", r.name, "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues(r.name, "miss").Inc()
		return nil, nil
	}
	metrics.CacheLookups.WithLabelValues(r.name, "hit").Inc()
	snap.Source = domain.SourceCache
	return &snap, nil
}

// Put stores snap under key, overwriting any previous copy.
func (r *Region) Put(ctx context.Context, key string, snap *domain.Snapshot) error {
	stored := snap.Clone()
	stored.StoredAt = r.s.now().UTC()
	stored.Header.Del(domain.SourceHeader)

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.s.store.Put(ctx, r.bucket, key, data); err != nil {
		return &domain.StorageError{Op: "cache put", Err: err}
	}
	return nil
}

// DeleteKey removes one key. Missing keys are ignored.
func (r *Region) DeleteKey(ctx context.Context, key string) error {
	if err := r.s.store.Delete(ctx, r.bucket, key); err != nil {
		return &domain.StorageError{Op: "cache delete", Err: err}
	}
	return nil
}

// Keys lists the request keys held by the region in insertion order.
func (r *Region) Keys(ctx context.Context) ([]string, error) {
	records, err := r.s.store.List(ctx, r.bucket)
	if err != nil {
		return nil, &domain.StorageError{Op: "cache list", Err: err}
	}
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		keys = append(keys, rec.Key)
	}
	return keys, nil
}

// Get is a shorthand for opening region and reading key.
func (s *Store) Get(ctx context.Context, region, key string) (*domain.Snapshot, error) {
	r, err := s.Open(region)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

// Put is a shorthand for opening region and writing key.
func (s *Store) Put(ctx context.Context, region, key string, snap *domain.Snapshot) error {
	r, err := s.Open(region)
	if err != nil {
		return err
	}
	return r.Put(ctx, key, snap)
}

// DeleteKey is a shorthand for opening region and deleting key.
func (s *Store) DeleteKey(ctx context.Context, region, key string) error {
	r, err := s.Open(region)
	if err != nil {
		return err
	}
	return r.DeleteKey(ctx, key)
}

// Match looks key up in each region in order and returns the first hit.
func (s *Store) Match(ctx context.Context, key string, regions ...string) (*domain.Snapshot, string, error) {
	for _, name := range regions {
		snap, err := s.Get(ctx, name, key)
		if err != nil {
			return nil, "", err
		}
		if snap != nil {
			return snap, name, nil
		}
	}
	return nil, "", nil
}

// Regions lists every region currently held, staging regions included.
func (s *Store) Regions(ctx context.Context) ([]string, error) {
	buckets, err := s.store.Buckets(ctx, BucketPrefix)
	if err != nil {
		return nil, &domain.StorageError{Op: "cache regions", Err: err}
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, strings.TrimPrefix(b, BucketPrefix))
	}
	return names, nil
}

// DeleteRegionsNotIn drops every cache region whose name is not in keep and
// returns the names it removed.
func (s *Store) DeleteRegionsNotIn(ctx context.Context, keep []string) ([]string, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	names, err := s.Regions(ctx)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, name := range names {
		if _, ok := keepSet[name]; ok {
			continue
		}
		if err := s.store.DropBucket(ctx, BucketPrefix+name); err != nil {
			return deleted, &domain.StorageError{Op: "cache drop " + name, Err: err}
		}
		s.log.Info("Deleted stale cache region", "region", name)
		metrics.RegionsEvicted.Inc()
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// Promote copies every record from staging into region and drops staging.
func (s *Store) Promote(ctx context.Context, staging, region *Region) error {
	records, err := s.store.List(ctx, staging.bucket)
	if err != nil {
		return &domain.StorageError{Op: "cache promote", Err: err}
	}
	for _, rec := range records {
		if err := s.store.Put(ctx, region.bucket, rec.Key, rec.Value); err != nil {
			return &domain.StorageError{Op: "cache promote", Err: err}
		}
	}
	return s.Discard(ctx, staging)
}

// Discard drops a region outright.
func (s *Store) Discard(ctx context.Context, r *Region) error {
	if err := s.store.DropBucket(ctx, r.bucket); err != nil {
		return &domain.StorageError{Op: "cache discard", Err: err}
	}
	return nil
}
