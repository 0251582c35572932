// Package connectivity watches the origin and raises the sync tag when it
// comes back after being unreachable.
package connectivity

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

// Prober reaches the origin. Any HTTP answer counts as online.
type Prober interface {
	Get(ctx context.Context, path string) (*domain.Snapshot, error)
}

// SignalFunc receives the sync tag on every offline to online transition.
type SignalFunc func(ctx context.Context, tag string)

// Config tunes probing.
type Config struct {
	Path     string
	Interval time.Duration
	Jitter   float64 // fraction of Interval, 0..1
	Timeout  time.Duration
	Tag      string
}

// Monitor probes the origin on a jittered interval. The origin is assumed
// unreachable until the first probe succeeds, so a reconnect signal also
// fires once at startup.
type Monitor struct {
	prober   Prober
	cfg      Config
	onChange SignalFunc

	mu         sync.RWMutex
	online     bool
	lastProbe  time.Time
	lastChange time.Time

	rng *rand.Rand
	log *slog.Logger
}

// NewMonitor creates a monitor. onReconnect may be nil.
func NewMonitor(prober Prober, cfg Config, onReconnect SignalFunc) *Monitor {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Tag == "" {
		cfg.Tag = domain.DefaultSyncTag
	}
	return &Monitor{
		prober:   prober,
		cfg:      cfg,
		onChange: onReconnect,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      slog.Default().With("component", "connectivity"),
	}
}

// Online reports the result of the last probe.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// LastChange returns when connectivity last flipped.
func (m *Monitor) LastChange() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastChange
}

// Probe checks the origin once and reports whether it answered. It returns
// true for reconnected when the origin was previously unreachable.
func (m *Monitor) Probe(ctx context.Context) (online, reconnected bool) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	_, err := m.prober.Get(ctx, m.cfg.Path)
	online = err == nil

	m.mu.Lock()
	was := m.online
	m.online = online
	m.lastProbe = time.Now()
	if was != online {
		m.lastChange = m.lastProbe
	}
	m.mu.Unlock()

	if online {
		metrics.UpstreamOnline.Set(1)
	} else {
		metrics.UpstreamOnline.Set(0)
	}

	switch {
	case online && !was:
		m.log.Info("Origin reachable", "path", m.cfg.Path)
		return online, true
	case !online && was:
		m.log.Warn("Origin unreachable", "path", m.cfg.Path, "error", err)
	}
	return online, false
}

// Run probes until ctx is done, raising the sync tag on each reconnect. A
// raised signal is not cancelled with ctx: Run returns only after every
// signal handler it started has returned.
func (m *Monitor) Run(ctx context.Context) {
	var signals sync.WaitGroup
	defer signals.Wait()

	check := func() {
		if _, reconnected := m.Probe(ctx); reconnected && m.onChange != nil {
			// Draining may take a while; keep probing meanwhile.
			signals.Add(1)
			go func() {
				defer signals.Done()
				m.onChange(context.WithoutCancel(ctx), m.cfg.Tag)
			}()
		}
	}

	check()
	timer := time.NewTimer(JitteredInterval(m.cfg.Interval, m.cfg.Jitter, m.rng.Float64()))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			check()
			timer.Reset(JitteredInterval(m.cfg.Interval, m.cfg.Jitter, m.rng.Float64()))
		}
	}
}

// JitteredInterval spreads base by ±ratio using sample in [0,1].
func JitteredInterval(base time.Duration, ratio, sample float64) time.Duration {
	if base <= 0 {
		return 0
	}
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	if ratio == 0 {
		return base
	}
	if sample < 0 {
		sample = 0
	} else if sample > 1 {
		sample = 1
	}
	factor := 1 + ((sample*2)-1)*ratio
	delay := time.Duration(float64(base) * factor)
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}
