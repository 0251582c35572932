// Package control wires the gateway's components together and drives their
// lifecycle.
package control

import (
	"context"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/health"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// Status is a point-in-time view of the gateway for operators.
type Status struct {
	System      health.SystemStatus `json:"system"`
	Online      bool                `json:"online"`
	SyncState   domain.SyncState    `json:"sync_state"`
	SyncDetail  string              `json:"sync_detail"`
	OutboxDepth int                 `json:"outbox_depth"`
	Entries     int                 `json:"entries"`
	Regions     []string            `json:"regions"`
	Current     domain.RegionSet    `json:"current"`
	LastDrain   *replay.Result      `json:"last_drain,omitempty"`
	CheckedAt   time.Time           `json:"checked_at"`
}

// Status collects the health report together with queue and cache sizes.
func (g *Gateway) Status(ctx context.Context) (*Status, error) {
	report := g.healthMon.CheckHealth(ctx)

	depth, err := g.queue.Depth(ctx, domain.RegionOutbox)
	if err != nil {
		return nil, err
	}
	local, err := g.queue.Depth(ctx, domain.RegionEntries)
	if err != nil {
		return nil, err
	}
	regions, err := g.cache.Regions(ctx)
	if err != nil {
		return nil, err
	}

	state := g.coordinator.State()
	return &Status{
		System:      report.SystemStatus,
		Online:      report.Online,
		SyncState:   state,
		SyncDetail:  replay.StateDescription(state),
		OutboxDepth: depth,
		Entries:     local,
		Regions:     regions,
		Current:     g.manager.Regions(),
		LastDrain:   report.LastDrain,
		CheckedAt:   report.CheckedAt,
	}, nil
}

// Probe checks the origin once and reports whether it answered.
func (g *Gateway) Probe(ctx context.Context) bool {
	online, _ := g.conn.Probe(ctx)
	return online
}

// DropOutbox removes one outbox entry. Replay stops at the first failure, so
// an entry the origin always rejects has to be removed by hand.
func (g *Gateway) DropOutbox(ctx context.Context, id int64) error {
	return g.queue.DeleteOutbox(ctx, id)
}
