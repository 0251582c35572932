package domain

import (
	"encoding/json"
	"time"
)

// QueueRegion names one of the two regions of the durable local store.
type QueueRegion string

const (
	// RegionEntries holds completed local records.
	RegionEntries QueueRegion = "entries"
	// RegionOutbox holds mutations pending delivery.
	RegionOutbox QueueRegion = "outbox"
)

// OutboxEntry is a mutation waiting to be delivered to the remote endpoint.
// Entries are never mutated in place: they are present until confirmed, then removed.
type OutboxEntry struct {
	ID             int64           `json:"id"`
	Payload        json.RawMessage `json:"payload"`
	QueuedAt       time.Time       `json:"queued_at"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// LocalEntry is a record saved to the entries region.
type LocalEntry struct {
	ID        int64           `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
