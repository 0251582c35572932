package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/outpost/internal/core/config"
	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/gateway"
	"github.com/vietddude/outpost/internal/health"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/infra/storage/backend"
	"github.com/vietddude/outpost/internal/infra/storage/sqldb"
	"github.com/vietddude/outpost/internal/offline/cache"
	"github.com/vietddude/outpost/internal/offline/connectivity"
	"github.com/vietddude/outpost/internal/offline/entries"
	"github.com/vietddude/outpost/internal/offline/lifecycle"
	"github.com/vietddude/outpost/internal/offline/notify"
	"github.com/vietddude/outpost/internal/offline/queue"
	"github.com/vietddude/outpost/internal/offline/replay"
	"github.com/vietddude/outpost/internal/offline/routing"
	"github.com/vietddude/outpost/internal/offline/strategy"
)

// Gateway is the main application struct that owns every component and
// their lifecycle.
type Gateway struct {
	cfg *config.AppConfig

	handle      *storage.Handle
	store       storage.Store
	queue       *queue.Queue
	cache       *cache.Store
	origin      *network.Client
	classifier  *routing.Classifier
	engine      *strategy.Engine
	manager     *lifecycle.Manager
	manifest    *lifecycle.Watcher
	coordinator *replay.Coordinator
	signals     *gateway.Signals
	conn        *connectivity.Monitor
	entries     *entries.Service

	healthMon    *health.Monitor
	healthServer *health.Server
	proxyServer  *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// NewGateway opens storage and wires every component. Nothing runs until
// Start.
func NewGateway(ctx context.Context, cfg *config.AppConfig) (*Gateway, error) {
	log := slog.Default().With("component", "gateway")

	// 1. Storage
	open, err := backend.NewOpener(cfg.Storage)
	if err != nil {
		return nil, err
	}
	handle := storage.NewHandle(open)
	store, err := handle.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	scheme, _ := cfg.Storage.Scheme()
	log.Info("Storage opened", "scheme", scheme)

	g := &Gateway{cfg: cfg, handle: handle, store: store, log: log}
	if err := g.wire(); err != nil {
		handle.Close()
		return nil, err
	}
	return g, nil
}

func (g *Gateway) wire() error {
	cfg := g.cfg

	// 2. Queue and cache
	g.queue = queue.New(g.store)
	keys, err := cache.NewKeyer(cfg.Cache.IgnoreQueryParams)
	if err != nil {
		return fmt.Errorf("invalid ignore_query_params: %w", err)
	}
	g.cache = cache.New(g.store, keys)

	// 3. Origin client and routing
	g.origin = network.NewClient(cfg.Upstream.URL, cfg.Upstream.Timeout, cfg.Cache.MaxBodyBytes)

	manifest := cfg.Cache.Manifest
	if cfg.Cache.ManifestFile != "" {
		if manifest, err = lifecycle.LoadManifest(cfg.Cache.ManifestFile); err != nil {
			return err
		}
	}
	g.classifier = routing.NewClassifier(manifest, cfg.Cache.APIPrefix)

	regions := domain.RegionSet{
		Shell: domain.RegionName(domain.RegionShell, cfg.Cache.ShellVersion),
		Image: domain.RegionName(domain.RegionImage, cfg.Cache.ImageVersion),
		Data:  domain.RegionName(domain.RegionData, cfg.Cache.DataVersion),
	}
	g.engine, err = strategy.NewEngine(g.cache, g.origin, strategy.Config{
		Regions:             regions,
		OfflineDocument:     cfg.Cache.OfflineDocument,
		PopulateShellOnMiss: cfg.Cache.PopulateShellOnMiss,
	})
	if err != nil {
		return err
	}

	// 4. Lifecycle
	g.manager = lifecycle.NewManager(g.cache, g.origin, regions, manifest)
	if cfg.Cache.ManifestFile != "" {
		g.manifest = lifecycle.NewWatcher(cfg.Cache.ManifestFile, g.reloadManifest)
	}

	// 5. Sync and notifications
	deliverer := replay.NewHTTPDeliverer(g.origin, cfg.Sync.Endpoint, cfg.Sync.Timeout)
	g.coordinator = replay.NewCoordinator(g.queue, deliverer, cfg.Sync.Tag)

	dispatcher, err := notify.NewDispatcher(notify.NewLogDisplayer(), notify.Defaults{
		Title:    cfg.Push.DefaultTitle,
		Icon:     cfg.Push.Icon,
		Badge:    cfg.Push.Badge,
		ClickURL: cfg.Push.ClickURL,
	})
	if err != nil {
		return err
	}
	g.signals = gateway.NewSignals(g.coordinator, dispatcher)

	g.conn = connectivity.NewMonitor(g.origin, connectivity.Config{
		Path:     cfg.Upstream.HealthPath,
		Interval: cfg.Upstream.ProbeInterval,
		Jitter:   cfg.Upstream.ProbeJitter,
		Timeout:  cfg.Upstream.Timeout,
		Tag:      cfg.Sync.Tag,
	}, g.signals.Raise)

	g.entries = entries.NewService(g.queue, entries.DelivererWriter{Deliverer: deliverer}, g.conn, g.signals.Raise, cfg.Sync.Tag)

	// 6. HTTP surfaces
	g.healthMon = health.NewMonitor(g.store, g.queue, g.coordinator, g.conn, g.origin)
	g.healthServer = health.NewServer(g.healthMon, cfg.Server.AdminPort)
	api := gateway.NewAPI(g.signals, g.entries, g.queue, g.manager, cfg.Sync.Tag)
	g.healthServer.Handle(gateway.AdminPrefix, api.Routes())

	g.proxyServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           gateway.NewProxy(g.classifier, g.engine, cfg.Cache.MaxBodyBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// reloadManifest applies a new manifest and reinstalls the shell.
func (g *Gateway) reloadManifest(ctx context.Context, manifest []string) error {
	g.classifier.SetManifest(manifest)
	g.manager.SetManifest(manifest)
	if err := g.manager.Install(ctx); err != nil {
		return err
	}
	_, err := g.manager.Activate(ctx)
	return err
}

// Start installs and activates the cache regions, then starts the servers
// and background workers. A failed install is logged; the previous shell
// keeps serving.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, g.cancel = context.WithCancel(ctx)

	if err := g.manager.Install(ctx); err != nil {
		g.log.Warn("Install failed, continuing with cached shell", "error", err)
	}
	if _, err := g.manager.Activate(ctx); err != nil {
		return err
	}

	if s, ok := g.store.(*sqldb.Store); ok {
		s.DB().StartMetricsCollector(ctx)
	}

	if g.manifest != nil {
		if err := g.manifest.Start(ctx); err != nil {
			g.log.Warn("Manifest watcher disabled", "error", err)
		}
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.conn.Run(ctx)
	}()

	go func() {
		if err := g.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("Admin server failed", "error", err)
		}
	}()
	go func() {
		if err := g.proxyServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("Proxy server failed", "error", err)
		}
	}()

	g.log.Info("Gateway started",
		"port", g.cfg.Server.Port,
		"admin_port", g.cfg.Server.AdminPort,
		"upstream", g.cfg.Upstream.URL,
	)
	return nil
}

// Stop shuts the servers down, waits for background work and closes
// storage.
func (g *Gateway) Stop(ctx context.Context) error {
	g.log.Info("Stopping gateway...")

	var errs []error
	if err := g.proxyServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("proxy server: %w", err))
	}
	if err := g.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("admin server: %w", err))
	}
	if g.manifest != nil {
		if err := g.manifest.Stop(); err != nil {
			g.log.Warn("Failed to stop manifest watcher", "error", err)
		}
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
	g.entries.Wait()
	g.engine.Wait()
	g.origin.Close()

	if err := g.handle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases storage for a gateway that was never started.
func (g *Gateway) Close() error {
	g.entries.Wait()
	g.origin.Close()
	return g.handle.Close()
}

// Install precaches the shell and activates the current regions.
func (g *Gateway) Install(ctx context.Context) ([]string, error) {
	if err := g.manager.Install(ctx); err != nil {
		return nil, err
	}
	return g.manager.Activate(ctx)
}

// Drain runs one outbox drain regardless of connectivity.
func (g *Gateway) Drain(ctx context.Context) replay.Result {
	return g.coordinator.Drain(ctx)
}

// Submit records one entry through the write path.
func (g *Gateway) Submit(ctx context.Context, payload []byte) (*entries.Outcome, error) {
	return g.entries.Submit(ctx, payload)
}

// Handler returns the intercepting proxy handler.
func (g *Gateway) Handler() http.Handler { return g.proxyServer.Handler }

// AdminHandler returns the admin and health handler.
func (g *Gateway) AdminHandler() http.Handler { return g.healthServer.Handler() }
