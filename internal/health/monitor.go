package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// outboxBacklogLimit marks the outbox as degraded when exceeded.
const outboxBacklogLimit = 1000

// Pinger checks the durable store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OutboxCounter reports how many mutations are waiting.
type OutboxCounter interface {
	Depth(ctx context.Context, region domain.QueueRegion) (int, error)
}

// SyncReporter exposes the drain state.
type SyncReporter interface {
	State() domain.SyncState
	LastResult() (replay.Result, bool)
}

// Connectivity reports whether the origin is reachable.
type Connectivity interface {
	Online() bool
}

// UpstreamReporter exposes recent upstream call statistics.
type UpstreamReporter interface {
	GetHealth() network.HealthStatus
}

// Monitor aggregates health status from the gateway's components.
type Monitor struct {
	store    Pinger
	outbox   OutboxCounter
	sync     SyncReporter
	conn     Connectivity
	upstream UpstreamReporter

	interval   time.Duration
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(store Pinger, outbox OutboxCounter, sync SyncReporter, conn Connectivity, upstream UpstreamReporter) *Monitor {
	return &Monitor{
		store:    store,
		outbox:   outbox,
		sync:     sync,
		conn:     conn,
		upstream: upstream,
		interval: 2 * time.Second,
	}
}

// CheckHealth builds a report. Results are reused for a short interval so a
// busy probe does not hammer the store.
func (m *Monitor) CheckHealth(ctx context.Context) *HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return m.lastReport
	}

	report := &HealthReport{
		Components: make(map[string]ComponentHealth),
		SyncState:  domain.SyncStateIdle,
		CheckedAt:  time.Now(),
	}

	// 1. Durable store
	store := ComponentHealth{Status: StatusHealthy}
	if err := m.store.Ping(ctx); err != nil {
		store = ComponentHealth{Status: StatusCritical, Error: err.Error()}
	}
	report.Components["store"] = store

	// 2. Outbox backlog
	outbox := ComponentHealth{Status: StatusHealthy}
	if depth, err := m.outbox.Depth(ctx, domain.RegionOutbox); err != nil {
		outbox = ComponentHealth{Status: StatusCritical, Error: err.Error()}
	} else {
		report.OutboxDepth = depth
		if depth > outboxBacklogLimit {
			outbox.Status = StatusDegraded
		}
	}

	// 3. Last drain
	if m.sync != nil {
		report.SyncState = m.sync.State()
		if last, ok := m.sync.LastResult(); ok {
			report.LastDrain = &last
			if last.Err != nil && outbox.Status == StatusHealthy {
				outbox = ComponentHealth{Status: StatusDegraded, Error: last.Err.Error()}
			}
		}
	}
	report.Components["outbox"] = outbox

	// 4. Origin reachability. Serving from cache is expected, so offline only degrades.
	upstream := ComponentHealth{Status: StatusHealthy}
	report.Online = m.conn == nil || m.conn.Online()
	if !report.Online {
		upstream.Status = StatusDegraded
	}
	if m.upstream != nil {
		report.Upstream = m.upstream.GetHealth()
	}
	report.Components["upstream"] = upstream

	report.SystemStatus = aggregate(report.Components)
	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

// aggregate returns the worst component status.
func aggregate(components map[string]ComponentHealth) SystemStatus {
	status := StatusHealthy
	for _, c := range components {
		if c.Status == StatusCritical {
			return StatusCritical
		}
		if c.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
