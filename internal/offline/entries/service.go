// Package entries is the application write path: every entry is saved
// locally first, then written to the origin when possible and queued in the
// outbox otherwise.
package entries

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/queue"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// RemoteWriter performs the online write.
type RemoteWriter interface {
	Write(ctx context.Context, payload json.RawMessage) error
}

// Connectivity reports whether the origin is reachable.
type Connectivity interface {
	Online() bool
}

// Signaler raises a sync tag.
type Signaler func(ctx context.Context, tag string)

// Outcome describes what Submit did with an entry.
type Outcome struct {
	Entry     *domain.LocalEntry  `json:"entry"`
	Delivered bool                `json:"delivered"`
	Queued    *domain.OutboxEntry `json:"queued,omitempty"`
}

// Service accepts application writes.
type Service struct {
	queue  *queue.Queue
	remote RemoteWriter
	conn   Connectivity
	signal Signaler
	tag    string

	// pending tracks sync signals raised in the background.
	pending sync.WaitGroup

	log *slog.Logger
}

// NewService wires the write path. conn and signal may be nil.
func NewService(q *queue.Queue, remote RemoteWriter, conn Connectivity, signal Signaler, tag string) *Service {
	if tag == "" {
		tag = domain.DefaultSyncTag
	}
	return &Service{
		queue:  q,
		remote: remote,
		conn:   conn,
		signal: signal,
		tag:    tag,
		log:    slog.Default().With("component", "entries"),
	}
}

// Submit saves payload locally, then writes it upstream when online. A
// failed or skipped online write queues the payload and raises the sync tag
// in the background, so a long drain never holds up the caller.
// Storage errors are returned; the entry is not durable in that case.
func (s *Service) Submit(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	entry, err := s.queue.SaveLocalEntry(ctx, payload)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Entry: entry}

	if s.online() {
		err := s.remote.Write(ctx, payload)
		if err == nil {
			out.Delivered = true
			return out, nil
		}
		s.log.Info("Online write failed, queueing", "entry", entry.ID, "error", err)
	}

	queued, err := s.queue.QueueOutbox(ctx, payload)
	if err != nil {
		return out, err
	}
	out.Queued = queued

	if s.signal != nil && s.online() {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.signal(context.WithoutCancel(ctx), s.tag)
		}()
	}
	return out, nil
}

// Wait blocks until every sync signal raised by Submit has returned.
func (s *Service) Wait() {
	s.pending.Wait()
}

// List returns local entries oldest first.
func (s *Service) List(ctx context.Context) ([]domain.LocalEntry, error) {
	return s.queue.ListLocalEntries(ctx)
}

func (s *Service) online() bool {
	return s.conn == nil || s.conn.Online()
}

// DelivererWriter performs online writes through the outbox deliverer so both
// paths hit the same endpoint with the same headers.
type DelivererWriter struct {
	Deliverer replay.Deliverer
}

// Write sends payload with a fresh idempotency key.
func (w DelivererWriter) Write(ctx context.Context, payload json.RawMessage) error {
	return w.Deliverer.Deliver(ctx, domain.OutboxEntry{Payload: payload, IdempotencyKey: uuid.NewString()})
}
