package strategy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

// revalidateTimeout bounds a background refresh that outlives its request.
const revalidateTimeout = 30 * time.Second

// offlinePayload is what API callers get with neither network nor cache.
var offlinePayload = []byte(`{"ok":false,"offline":true}`)

// navigation is NetworkFirst into the shell region, falling back to the
// cached offline document and then a 503.
func (e *Engine) navigation(ctx context.Context, r *http.Request) *domain.Snapshot {
	snap, err := e.net.Fetch(ctx, r)
	if err == nil {
		e.store(ctx, e.shellRegion, r, snap)
		return snap
	}
	e.networkFailed(domain.ClassNavigation, r, err)

	if doc := e.lookup(ctx, e.shellRegion, e.cache.Keys().Path(e.cfg.OfflineDocument)); doc != nil {
		metrics.FallbacksTotal.WithLabelValues(string(domain.ClassNavigation), "offline_document").Inc()
		return doc
	}
	metrics.FallbacksTotal.WithLabelValues(string(domain.ClassNavigation), "synthesized").Inc()
	return unavailable()
}

// staticShell is CacheFirst across the current regions, shell first.
func (e *Engine) staticShell(ctx context.Context, r *http.Request) *domain.Snapshot {
	key := e.key(r)
	cached, region, err := e.cache.Match(ctx, key, e.cfg.Regions.Names()...)
	if err != nil {
		e.log.Warn("Cache match failed", "key", key, "error", err)
	}
	if cached != nil {
		e.log.Debug("Shell cache hit", "key", key, "region", region)
		return cached
	}

	snap, err := e.net.Fetch(ctx, r)
	if err != nil {
		e.networkFailed(domain.ClassStaticShell, r, err)
		metrics.FallbacksTotal.WithLabelValues(string(domain.ClassStaticShell), "synthesized").Inc()
		return unavailable()
	}
	if e.cfg.PopulateShellOnMiss {
		e.store(ctx, e.shellRegion, r, snap)
	}
	return snap
}

// image is StaleWhileRevalidate over the image region.
func (e *Engine) image(ctx context.Context, r *http.Request) *domain.Snapshot {
	key := e.key(r)
	cached := e.lookup(ctx, e.imageRegion, key)
	if cached == nil {
		snap, err := e.revalidate(ctx, key, r)
		if err != nil {
			e.networkFailed(domain.ClassImage, r, err)
			metrics.FallbacksTotal.WithLabelValues(string(domain.ClassImage), "no_content").Inc()
			return domain.Empty(http.StatusNoContent)
		}
		return snap
	}

	// Serve the cached copy now; refresh it for next time.
	bg := r.Clone(context.WithoutCancel(ctx))
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		bgCtx, cancel := context.WithTimeout(bg.Context(), revalidateTimeout)
		defer cancel()
		if _, err := e.revalidate(bgCtx, key, bg); err != nil {
			metrics.RevalidationsTotal.WithLabelValues("failed").Inc()
			e.log.Debug("Background revalidation failed", "url", bg.URL.String(), "error", err)
			return
		}
		metrics.RevalidationsTotal.WithLabelValues("updated").Inc()
	}()
	return cached
}

// revalidate fetches r and updates the image region. Concurrent refreshes of
// one key share a single fetch that no caller can cancel; each caller stops
// waiting when its own ctx is done.
func (e *Engine) revalidate(ctx context.Context, key string, r *http.Request) (*domain.Snapshot, error) {
	e.background.Add(1)
	ch := e.revalidating.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revalidateTimeout)
		defer cancel()
		req := r.Clone(fetchCtx)
		snap, err := e.net.Fetch(fetchCtx, req)
		if err != nil {
			return nil, err
		}
		e.store(fetchCtx, e.imageRegion, req, snap)
		return snap, nil
	})

	select {
	case res := <-ch:
		e.background.Done()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot).Clone(), nil
	case <-ctx.Done():
		// The fetch keeps running for other callers; Wait still covers it.
		go func() {
			<-ch
			e.background.Done()
		}()
		return nil, &domain.NetworkError{URL: r.URL.String(), Err: ctx.Err()}
	}
}

// apiData is NetworkFirst into the data region, falling back to the cached
// copy and then a success-shaped offline payload.
func (e *Engine) apiData(ctx context.Context, r *http.Request) *domain.Snapshot {
	snap, err := e.net.Fetch(ctx, r)
	if err == nil {
		e.store(ctx, e.dataRegion, r, snap)
		return snap
	}
	e.networkFailed(domain.ClassAPIData, r, err)

	if cached := e.lookup(ctx, e.dataRegion, e.key(r)); cached != nil {
		metrics.FallbacksTotal.WithLabelValues(string(domain.ClassAPIData), "cache").Inc()
		return cached
	}
	metrics.FallbacksTotal.WithLabelValues(string(domain.ClassAPIData), "synthesized").Inc()
	return offlineJSON()
}

// passThrough returns the network answer untouched, else a shell copy, else 204.
func (e *Engine) passThrough(ctx context.Context, r *http.Request) *domain.Snapshot {
	snap, err := e.net.Fetch(ctx, r)
	if err == nil {
		return snap
	}
	e.networkFailed(domain.ClassOther, r, err)

	if cached := e.lookup(ctx, e.shellRegion, e.key(r)); cached != nil {
		metrics.FallbacksTotal.WithLabelValues(string(domain.ClassOther), "cache").Inc()
		return cached
	}
	metrics.FallbacksTotal.WithLabelValues(string(domain.ClassOther), "no_content").Inc()
	return domain.Empty(http.StatusNoContent)
}

func (e *Engine) networkFailed(class domain.RequestClass, r *http.Request, err error) {
	metrics.UpstreamErrors.WithLabelValues(string(class)).Inc()
	if !errors.Is(err, domain.ErrNetwork) {
		e.log.Warn("Unexpected fetch failure", "class", class, "url", r.URL.String(), "error", err)
		return
	}
	e.log.Debug("Network unavailable, falling back", "class", class, "url", r.URL.String(), "error", err)
}

func unavailable() *domain.Snapshot {
	snap := domain.Empty(http.StatusServiceUnavailable)
	snap.Header.Set("Content-Type", "text/plain; charset=utf-8")
	snap.Body = []byte("Offline")
	return snap
}

func offlineJSON() *domain.Snapshot {
	snap := domain.Empty(http.StatusOK)
	snap.Header.Set("Content-Type", "application/json")
	snap.Body = append([]byte(nil), offlinePayload...)
	return snap
}
