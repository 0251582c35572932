// Package lifecycle precaches the static shell and retires old cache regions.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/cache"
)

// installConcurrency bounds parallel manifest fetches.
const installConcurrency = 8

// Getter fetches a path from the origin.
type Getter interface {
	Get(ctx context.Context, path string) (*domain.Snapshot, error)
}

// Manager runs install and activation.
type Manager struct {
	cache   *cache.Store
	origin  Getter
	regions domain.RegionSet

	mu       sync.RWMutex
	manifest []string

	// op serializes Install and Activate; both touch the staging region.
	op sync.Mutex

	log *slog.Logger
}

// NewManager creates a manager for the current region set.
func NewManager(store *cache.Store, origin Getter, regions domain.RegionSet, manifest []string) *Manager {
	return &Manager{
		cache:    store,
		origin:   origin,
		regions:  regions,
		manifest: append([]string(nil), manifest...),
		log:      slog.Default().With("component", "lifecycle"),
	}
}

// Manifest returns the current shell manifest.
func (m *Manager) Manifest() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.manifest...)
}

// SetManifest replaces the shell manifest used by the next install.
func (m *Manager) SetManifest(manifest []string) {
	m.mu.Lock()
	m.manifest = append([]string(nil), manifest...)
	m.mu.Unlock()
}

// Regions returns the current region set.
func (m *Manager) Regions() domain.RegionSet { return m.regions }

// Install fetches every manifest path into the shell region. It is all or
// nothing: paths are staged first and the shell region is only written once
// every one of them answered 2xx.
func (m *Manager) Install(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	start := time.Now()
	manifest := m.Manifest()

	shell, err := m.cache.Open(m.regions.Shell)
	if err != nil {
		return err
	}
	staging := m.cache.Staging(m.regions.Shell)
	if err := m.cache.Discard(ctx, staging); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for _, path := range manifest {
		g.Go(func() error {
			snap, err := m.origin.Get(gctx, path)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			if !snap.OK() {
				return fmt.Errorf("precache %s: http %d", path, snap.Status)
			}
			return staging.Put(gctx, m.cache.Keys().Path(path), snap)
		})
	}

	if err := g.Wait(); err != nil {
		if derr := m.cache.Discard(context.WithoutCancel(ctx), staging); derr != nil {
			m.log.Warn("Failed to discard staged shell", "error", derr)
		}
		m.log.Error("Install failed", "region", m.regions.Shell, "error", err)
		return fmt.Errorf("install %s: %w", m.regions.Shell, err)
	}

	if err := m.cache.Promote(ctx, staging, shell); err != nil {
		return fmt.Errorf("install %s: %w", m.regions.Shell, err)
	}
	m.log.Info("Shell installed", "region", m.regions.Shell, "files", len(manifest), "duration", time.Since(start))
	return nil
}

// Activate deletes every cache region outside the current set. Running it
// twice with the same set is a no-op.
func (m *Manager) Activate(ctx context.Context) ([]string, error) {
	m.op.Lock()
	defer m.op.Unlock()

	deleted, err := m.cache.DeleteRegionsNotIn(ctx, m.regions.Names())
	if err != nil {
		return deleted, fmt.Errorf("activate: %w", err)
	}
	m.log.Info("Activated", "shell", m.regions.Shell, "image", m.regions.Image, "data", m.regions.Data, "deleted", len(deleted))
	return deleted, nil
}
