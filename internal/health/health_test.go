package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// =============================================================================
// Stubs
// =============================================================================

type stubStore struct{ err error }

func (s *stubStore) Ping(ctx context.Context) error { return s.err }

type stubOutbox struct {
	depth int
	err   error
}

func (s *stubOutbox) Depth(ctx context.Context, r domain.QueueRegion) (int, error) {
	return s.depth, s.err
}

type stubSync struct {
	state domain.SyncState
	last  *replay.Result
}

func (s *stubSync) State() domain.SyncState { return s.state }
func (s *stubSync) LastResult() (replay.Result, bool) {
	if s.last == nil {
		return replay.Result{}, false
	}
	return *s.last, true
}

type stubConn bool

func (c stubConn) Online() bool { return bool(c) }

type stubUpstream struct{}

func (stubUpstream) GetHealth() network.HealthStatus { return network.HealthStatus{Available: true} }

// =============================================================================
// Tests
// =============================================================================

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  error
		depth  int
		online bool
		last   *replay.Result
		expect SystemStatus
	}{
		{"all good", nil, 0, true, nil, StatusHealthy},
		{"offline with backlog", nil, 3, false, nil, StatusDegraded},
		{"store down", errors.New("disk gone"), 0, true, nil, StatusCritical},
		{"huge backlog", nil, outboxBacklogLimit + 1, true, nil, StatusDegraded},
		{"last drain failed", nil, 2, true, &replay.Result{Err: errors.New("http 500")}, StatusDegraded},
		{"last drain complete", nil, 0, true, &replay.Result{Complete: true, Delivered: 4}, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(
				&stubStore{err: tt.store},
				&stubOutbox{depth: tt.depth},
				&stubSync{state: domain.SyncStateIdle, last: tt.last},
				stubConn(tt.online),
				stubUpstream{},
			)
			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.expect {
				t.Errorf("expected %s, got %s (%+v)", tt.expect, report.SystemStatus, report.Components)
			}
			if report.OutboxDepth != tt.depth {
				t.Errorf("expected depth %d, got %d", tt.depth, report.OutboxDepth)
			}
		})
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(&stubStore{err: errors.New("down")}, &stubOutbox{}, nil, nil, nil)
	s := NewServer(m, 0)
	s.Handle("GET /_outpost/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when store is down, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed report: %v", err)
	}
	if report.Components["store"].Status != StatusCritical {
		t.Errorf("expected critical store component, got %+v", report.Components)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics endpoint, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/_outpost/ping", nil))
	if rec.Body.String() != "pong" {
		t.Errorf("expected mounted route, got %q", rec.Body.String())
	}
}
