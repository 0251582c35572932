package connectivity

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
)

// switchOrigin is an origin that can be taken down and brought back.
type switchOrigin struct {
	mu   sync.Mutex
	down bool
}

func (p *switchOrigin) set(down bool) {
	p.mu.Lock()
	p.down = down
	p.mu.Unlock()
}

func (p *switchOrigin) Get(ctx context.Context, path string) (*domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return nil, &domain.NetworkError{URL: path, Err: errors.New("unreachable")}
	}
	return &domain.Snapshot{Status: http.StatusInternalServerError}, nil
}

func TestMonitor_Transitions(t *testing.T) {
	p := &switchOrigin{down: true}
	m := NewMonitor(p, Config{Path: "/health"}, nil)
	ctx := context.Background()

	if online, reconnected := m.Probe(ctx); online || reconnected {
		t.Errorf("expected offline, got online=%v reconnected=%v", online, reconnected)
	}

	// Any status counts as reachable.
	p.set(false)
	if online, reconnected := m.Probe(ctx); !online || !reconnected {
		t.Errorf("expected reconnect, got online=%v reconnected=%v", online, reconnected)
	}
	if _, reconnected := m.Probe(ctx); reconnected {
		t.Errorf("staying online is not a reconnect")
	}
	if !m.Online() || m.LastChange().IsZero() {
		t.Errorf("expected online with a recorded change")
	}

	p.set(true)
	m.Probe(ctx)
	if m.Online() {
		t.Errorf("expected offline after origin went down")
	}
}

func TestRun_RaisesTagOnReconnect(t *testing.T) {
	p := &switchOrigin{down: true}
	tags := make(chan string, 4)
	m := NewMonitor(p, Config{Interval: 10 * time.Millisecond, Tag: "sync-entries"}, func(ctx context.Context, tag string) {
		tags <- tag
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	select {
	case tag := <-tags:
		t.Fatalf("unexpected signal %q while offline", tag)
	default:
	}

	p.set(false)
	select {
	case tag := <-tags:
		if tag != "sync-entries" {
			t.Errorf("unexpected tag %q", tag)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected sync signal after reconnect")
	}
}

func TestRun_WaitsForSignalHandler(t *testing.T) {
	p := &switchOrigin{}
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	m := NewMonitor(p, Config{Interval: time.Hour}, func(ctx context.Context, tag string) {
		close(started)
		<-release
		handlerErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	<-started
	cancel()
	select {
	case <-stopped:
		t.Fatal("Run returned while the signal handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the handler finished")
	}
	if handlerErr != nil {
		t.Errorf("signal handler context was cancelled: %v", handlerErr)
	}
}

func TestJitteredInterval(t *testing.T) {
	base := 10 * time.Second
	tests := []struct {
		ratio, sample float64
		expect        time.Duration
	}{
		{0, 0.2, base},
		{0.2, 0, 8 * time.Second},
		{0.2, 0.5, base},
		{0.2, 1, 12 * time.Second},
		{5, 0, time.Millisecond},
	}
	for _, tt := range tests {
		if got := JitteredInterval(base, tt.ratio, tt.sample); got != tt.expect {
			t.Errorf("JitteredInterval(%v, %v, %v) = %v, want %v", base, tt.ratio, tt.sample, got, tt.expect)
		}
	}
}
