package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vietddude/outpost/internal/infra/storage"
)

type entry struct {
	value []byte
	seq   int64
}

// MemoryStorage is a process-local storage.Store. It does not survive a
// restart and exists for tests and ephemeral deployments.
type MemoryStorage struct {
	buckets map[string]map[string]*entry
	ids     map[string]int64 // last Append id per bucket, kept across drops
	seq     int64
	closed  bool
	mu      sync.RWMutex
}

var _ storage.Store = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		buckets: make(map[string]map[string]*entry),
		ids:     make(map[string]int64),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	e, ok := s.buckets[bucket][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStorage) Put(ctx context.Context, bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.putLocked(bucket, key, value)
	return nil
}

func (s *MemoryStorage) putLocked(bucket, key string, value []byte) {
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]*entry)
		s.buckets[bucket] = b
	}
	s.seq++
	if e, ok := b[key]; ok {
		e.value = append([]byte(nil), value...)
		return
	}
	b[key] = &entry{value: append([]byte(nil), value...), seq: s.seq}
}

func (s *MemoryStorage) Append(ctx context.Context, bucket string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	s.ids[bucket]++
	id := s.ids[bucket]
	s.putLocked(bucket, storage.FormatID(id), value)
	return id, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if b, ok := s.buckets[bucket]; ok {
		delete(b, key)
		if len(b) == 0 {
			delete(s.buckets, bucket)
		}
	}
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, bucket string) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	b := s.buckets[bucket]
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return b[keys[i]].seq < b[keys[j]].seq })

	out := make([]storage.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, storage.Record{Key: k, Value: append([]byte(nil), b[k].value...)})
	}
	return out, nil
}

func (s *MemoryStorage) Buckets(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	var out []string
	for name := range s.buckets {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStorage) DropBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.buckets, bucket)
	return nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
