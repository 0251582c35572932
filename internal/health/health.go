// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth is the status of one part of the gateway.
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
	OutboxDepth  int                        `json:"outbox_depth"`
	SyncState    domain.SyncState           `json:"sync_state"`
	LastDrain    *replay.Result             `json:"last_drain,omitempty"`
	Online       bool                       `json:"online"`
	Upstream     network.HealthStatus       `json:"upstream"`
	CheckedAt    time.Time                  `json:"checked_at"`
}
