// Package strategy answers intercepted requests from the network, the cache
// or a synthesized fallback. Every strategy resolves to a response; network
// failures never escape to the caller.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/offline/cache"
)

// Name identifies a caching strategy.
type Name string

const (
	NetworkFirst         Name = "network_first"
	CacheFirst           Name = "cache_first"
	StaleWhileRevalidate Name = "stale_while_revalidate"
	PassThrough          Name = "pass_through"
)

// Config wires the engine to the current regions.
type Config struct {
	Regions             domain.RegionSet
	OfflineDocument     string
	PopulateShellOnMiss bool
}

type handlerFunc func(ctx context.Context, r *http.Request) *domain.Snapshot

type route struct {
	name  Name
	serve handlerFunc
}

// Engine dispatches a classified request to its strategy.
type Engine struct {
	cache *cache.Store
	net   network.Fetcher
	cfg   Config

	shellRegion *cache.Region
	imageRegion *cache.Region
	dataRegion  *cache.Region

	table map[domain.RequestClass]route

	revalidating singleflight.Group
	background   sync.WaitGroup

	log *slog.Logger
}

// NewEngine builds the class to strategy table.
func NewEngine(store *cache.Store, fetcher network.Fetcher, cfg Config) (*Engine, error) {
	e := &Engine{
		cache: store,
		net:   fetcher,
		cfg:   cfg,
		log:   slog.Default().With("component", "strategy"),
	}

	var err error
	if e.shellRegion, err = store.Open(cfg.Regions.Shell); err != nil {
		return nil, fmt.Errorf("shell region: %w", err)
	}
	if e.imageRegion, err = store.Open(cfg.Regions.Image); err != nil {
		return nil, fmt.Errorf("image region: %w", err)
	}
	if e.dataRegion, err = store.Open(cfg.Regions.Data); err != nil {
		return nil, fmt.Errorf("data region: %w", err)
	}

	e.table = map[domain.RequestClass]route{
		domain.ClassNavigation:  {NetworkFirst, e.navigation},
		domain.ClassStaticShell: {CacheFirst, e.staticShell},
		domain.ClassImage:       {StaleWhileRevalidate, e.image},
		domain.ClassAPIData:     {NetworkFirst, e.apiData},
		domain.ClassOther:       {PassThrough, e.passThrough},
	}
	for _, class := range domain.RequestClasses {
		if _, ok := e.table[class]; !ok {
			return nil, fmt.Errorf("no strategy for class %s", class)
		}
	}
	return e, nil
}

// StrategyFor reports which strategy serves class.
func (e *Engine) StrategyFor(class domain.RequestClass) Name {
	return e.table[class].name
}

// Serve answers r according to class. Unknown classes are passed through.
func (e *Engine) Serve(ctx context.Context, class domain.RequestClass, r *http.Request) *domain.Snapshot {
	rt, ok := e.table[class]
	if !ok {
		rt = e.table[domain.ClassOther]
	}
	return rt.serve(ctx, r)
}

// Wait blocks until background revalidations have finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

func (e *Engine) key(r *http.Request) string {
	return e.cache.Keys().Request(r)
}

// store writes a network copy to region. Only successful GET responses are
// kept; a failed write is logged and the response is still served.
func (e *Engine) store(ctx context.Context, region *cache.Region, r *http.Request, snap *domain.Snapshot) {
	if r.Method != http.MethodGet || !snap.OK() {
		return
	}
	if err := region.Put(ctx, e.key(r), snap); err != nil {
		e.log.Warn("Failed to cache response", "region", region.Name(), "url", r.URL.String(), "error", err)
	}
}

// lookup reads region, treating a storage failure as a miss.
func (e *Engine) lookup(ctx context.Context, region *cache.Region, key string) *domain.Snapshot {
	snap, err := region.Get(ctx, key)
	if err != nil {
		e.log.Warn("Cache read failed", "region", region.Name(), "key", key, "error", err)
		return nil
	}
	return snap
}
