// Package queue is the durable local store behind the offline write path. It
// keeps two regions: completed local entries and the outbox of mutations that
// still have to reach the origin.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/storage"
)

// Record is one stored value with the id the store assigned to it.
type Record struct {
	ID   int64
	Data json.RawMessage
}

// Queue is safe for concurrent use; the backing store serializes writes.
type Queue struct {
	store storage.Store
	now   func() time.Time
	log   *slog.Logger
}

// New creates a queue over an opened store.
func New(store storage.Store) *Queue {
	return &Queue{
		store: store,
		now:   time.Now,
		log:   slog.Default().With("component", "queue"),
	}
}

// Add appends record to region and returns its id. Ids are strictly
// increasing for the lifetime of the region.
func (q *Queue) Add(ctx context.Context, region domain.QueueRegion, record any) (int64, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("encode %s record: %w", region, err)
	}
	id, err := q.store.Append(ctx, string(region), data)
	if err != nil {
		return 0, &domain.StorageError{Op: "add " + string(region), Err: err}
	}
	return id, nil
}

// ListAll returns every record in region in ascending id order.
func (q *Queue) ListAll(ctx context.Context, region domain.QueueRegion) ([]Record, error) {
	stored, err := q.store.List(ctx, string(region))
	if err != nil {
		return nil, &domain.StorageError{Op: "list " + string(region), Err: err}
	}

	out := make([]Record, 0, len(stored))
	for _, r := range stored {
		id, err := storage.ParseID(r.Key)
		if err != nil {
			q.log.Warn("Skipping record with foreign key", "region", region, "key", r.Key)
			continue
		}
		out = append(out, Record{ID: id, Data: r.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove deletes one record. Removing an absent id is not an error.
func (q *Queue) Remove(ctx context.Context, region domain.QueueRegion, id int64) error {
	if err := q.store.Delete(ctx, string(region), storage.FormatID(id)); err != nil {
		return &domain.StorageError{Op: "remove " + string(region), Err: err}
	}
	return nil
}

// Depth counts the records in region.
func (q *Queue) Depth(ctx context.Context, region domain.QueueRegion) (int, error) {
	records, err := q.store.List(ctx, string(region))
	if err != nil {
		return 0, &domain.StorageError{Op: "depth " + string(region), Err: err}
	}
	return len(records), nil
}
