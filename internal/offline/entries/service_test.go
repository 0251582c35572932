package entries

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/infra/storage/memory"
	"github.com/vietddude/outpost/internal/offline/queue"
)

type stubWriter struct {
	err   error
	calls int
}

func (w *stubWriter) Write(ctx context.Context, payload json.RawMessage) error {
	w.calls++
	return w.err
}

// signalLog records raised tags; signals arrive from a background goroutine.
type signalLog struct {
	mu   sync.Mutex
	tags []string
}

func (l *signalLog) raise(ctx context.Context, tag string) {
	l.mu.Lock()
	l.tags = append(l.tags, tag)
	l.mu.Unlock()
}

func (l *signalLog) Tags() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tags...)
}

type staticConn bool

func (c staticConn) Online() bool { return bool(c) }

type brokenStore struct {
	storage.Store
}

func (brokenStore) Append(ctx context.Context, bucket string, value []byte) (int64, error) {
	return 0, errors.New("quota exceeded")
}

func TestSubmit_OnlineSuccess(t *testing.T) {
	ctx := context.Background()
	q := queue.New(memory.NewMemoryStorage())
	w := &stubWriter{}
	signals := &signalLog{}
	s := NewService(q, w, staticConn(true), signals.raise, "")

	out, err := s.Submit(ctx, json.RawMessage(`{"title":"buy milk"}`))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !out.Delivered || out.Queued != nil {
		t.Errorf("expected direct delivery, got %+v", out)
	}
	if pending, _ := q.Outbox(ctx); len(pending) != 0 {
		t.Errorf("nothing should be queued, got %d", len(pending))
	}
	if entries, _ := s.List(ctx); len(entries) != 1 {
		t.Errorf("expected entry saved locally, got %d", len(entries))
	}
	s.Wait()
	if got := signals.Tags(); len(got) != 0 {
		t.Errorf("no sync signal expected, got %v", got)
	}
}

func TestSubmit_OnlineFailureQueues(t *testing.T) {
	ctx := context.Background()
	q := queue.New(memory.NewMemoryStorage())
	w := &stubWriter{err: &domain.ConfirmationFailure{StatusCode: 503}}
	signals := &signalLog{}
	s := NewService(q, w, staticConn(true), signals.raise, "sync-entries")

	out, err := s.Submit(ctx, json.RawMessage(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out.Delivered || out.Queued == nil {
		t.Fatalf("expected entry queued, got %+v", out)
	}
	s.Wait()
	if got := signals.Tags(); len(got) != 1 || got[0] != "sync-entries" {
		t.Errorf("expected sync tag raised once, got %v", got)
	}
}

func TestSubmit_OfflineSkipsRemote(t *testing.T) {
	ctx := context.Background()
	q := queue.New(memory.NewMemoryStorage())
	w := &stubWriter{}
	signals := &signalLog{}
	s := NewService(q, w, staticConn(false), signals.raise, "")

	out, err := s.Submit(ctx, json.RawMessage(`{"title":"offline"}`))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if w.calls != 0 {
		t.Errorf("remote must not be tried while offline")
	}
	if out.Queued == nil {
		t.Errorf("expected entry queued")
	}
	s.Wait()
	if got := signals.Tags(); len(got) != 0 {
		t.Errorf("reconnect, not submit, raises the tag while offline")
	}
}

func TestSubmit_StorageErrorPropagates(t *testing.T) {
	s := NewService(queue.New(brokenStore{}), &stubWriter{}, nil, nil, "")
	if _, err := s.Submit(context.Background(), json.RawMessage(`{}`)); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestSubmit_DoesNotWaitForDrain(t *testing.T) {
	q := queue.New(memory.NewMemoryStorage())
	w := &stubWriter{err: &domain.ConfirmationFailure{StatusCode: 503}}
	release := make(chan struct{})
	s := NewService(q, w, staticConn(true), func(ctx context.Context, tag string) { <-release }, "")

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), json.RawMessage(`{"title":"slow"}`))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit waited for the drain to finish")
	}
	close(release)
	s.Wait()
}
