package replay

import (
	"context"
	"net/http"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
)

// IdempotencyHeader carries the entry's idempotency key so the origin can
// discard a redelivery after a lost confirmation.
const IdempotencyHeader = "Idempotency-Key"

// Deliverer sends one outbox entry to the mutation endpoint. A nil error
// means the origin confirmed it.
type Deliverer interface {
	Deliver(ctx context.Context, entry domain.OutboxEntry) error
}

// HTTPDeliverer posts entries as JSON through the origin client.
type HTTPDeliverer struct {
	client   *network.Client
	endpoint string
	timeout  time.Duration
}

// NewHTTPDeliverer targets endpoint, a path on the client's origin. Each
// delivery is bounded by timeout; zero leaves only the client's own limit.
func NewHTTPDeliverer(client *network.Client, endpoint string, timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{client: client, endpoint: endpoint, timeout: timeout}
}

// Deliver treats any 2xx as confirmation.
func (d *HTTPDeliverer) Deliver(ctx context.Context, entry domain.OutboxEntry) error {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if entry.IdempotencyKey != "" {
		header.Set(IdempotencyHeader, entry.IdempotencyKey)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	snap, err := d.client.Do(ctx, http.MethodPost, d.endpoint, header, entry.Payload)
	if err != nil {
		return err
	}
	if !snap.OK() {
		return &domain.ConfirmationFailure{EntryID: entry.ID, StatusCode: snap.Status}
	}
	return nil
}
