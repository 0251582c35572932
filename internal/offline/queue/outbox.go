package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

// ErrInvalidPayload is returned when a payload is not a JSON document.
var ErrInvalidPayload = errors.New("payload is not valid JSON")

type outboxRecord struct {
	Payload        json.RawMessage `json:"payload"`
	QueuedAt       time.Time       `json:"queued_at"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type localRecord struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// QueueOutbox stores a mutation for later delivery.
func (q *Queue) QueueOutbox(ctx context.Context, payload json.RawMessage) (*domain.OutboxEntry, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}
	rec := outboxRecord{
		Payload:        payload,
		QueuedAt:       q.now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
	id, err := q.Add(ctx, domain.RegionOutbox, rec)
	if err != nil {
		return nil, err
	}
	metrics.OutboxDepth.Inc()
	q.log.Debug("Queued outbox entry", "id", id)

	return &domain.OutboxEntry{
		ID:             id,
		Payload:        rec.Payload,
		QueuedAt:       rec.QueuedAt,
		IdempotencyKey: rec.IdempotencyKey,
	}, nil
}

// Outbox returns the pending mutations in ascending id order.
func (q *Queue) Outbox(ctx context.Context) ([]domain.OutboxEntry, error) {
	records, err := q.ListAll(ctx, domain.RegionOutbox)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OutboxEntry, 0, len(records))
	for _, r := range records {
		var rec outboxRecord
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			return nil, &domain.StorageError{Op: "decode outbox", Err: fmt.Errorf("entry %d: %w", r.ID, err)}
		}
		out = append(out, domain.OutboxEntry{
			ID:             r.ID,
			Payload:        rec.Payload,
			QueuedAt:       rec.QueuedAt,
			IdempotencyKey: rec.IdempotencyKey,
		})
	}
	metrics.OutboxDepth.Set(float64(len(out)))
	return out, nil
}

// DeleteOutbox removes a confirmed entry.
func (q *Queue) DeleteOutbox(ctx context.Context, id int64) error {
	if err := q.Remove(ctx, domain.RegionOutbox, id); err != nil {
		return err
	}
	// Deleting an unknown id is a no-op, so the gauge is recounted, not decremented.
	if n, err := q.Depth(ctx, domain.RegionOutbox); err == nil {
		metrics.OutboxDepth.Set(float64(n))
	}
	return nil
}

// SaveLocalEntry records a completed entry in the local read region.
func (q *Queue) SaveLocalEntry(ctx context.Context, payload json.RawMessage) (*domain.LocalEntry, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}
	rec := localRecord{Payload: payload, CreatedAt: q.now().UTC()}
	id, err := q.Add(ctx, domain.RegionEntries, rec)
	if err != nil {
		return nil, err
	}
	return &domain.LocalEntry{ID: id, Payload: rec.Payload, CreatedAt: rec.CreatedAt}, nil
}

// ListLocalEntries returns local entries in ascending id order.
func (q *Queue) ListLocalEntries(ctx context.Context) ([]domain.LocalEntry, error) {
	records, err := q.ListAll(ctx, domain.RegionEntries)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LocalEntry, 0, len(records))
	for _, r := range records {
		var rec localRecord
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			q.log.Warn("Skipping unreadable local entry", "id", r.ID, "error", err)
			continue
		}
		out = append(out, domain.LocalEntry{ID: r.ID, Payload: rec.Payload, CreatedAt: rec.CreatedAt})
	}
	return out, nil
}
