// Package gateway exposes the offline layer over HTTP: the intercepting
// proxy clients talk to, the signal handler and the admin API.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

// Classifier maps requests to classes.
type Classifier interface {
	Classify(r *http.Request) domain.RequestClass
}

// Strategies answers a classified request. It always returns a response.
type Strategies interface {
	Serve(ctx context.Context, class domain.RequestClass, r *http.Request) *domain.Snapshot
}

// Proxy is the request handler every client request goes through.
type Proxy struct {
	classifier Classifier
	strategies Strategies
	maxBody    int64
	log        *slog.Logger
}

// NewProxy creates the intercepting handler. maxBody <= 0 disables the
// request size limit.
func NewProxy(classifier Classifier, strategies Strategies, maxBody int64) *Proxy {
	return &Proxy{
		classifier: classifier,
		strategies: strategies,
		maxBody:    maxBody,
		log:        slog.Default().With("component", "proxy"),
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := p.bufferBody(w, r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	class := p.classifier.Classify(r)
	snap := p.strategies.Serve(r.Context(), class, r)
	if snap == nil {
		// Strategies never return nil; guard the writer anyway.
		snap = domain.Empty(http.StatusNoContent)
	}

	WriteSnapshot(w, snap)

	metrics.RequestsTotal.WithLabelValues(string(class), string(snap.Source)).Inc()
	metrics.RequestLatency.WithLabelValues(string(class)).Observe(time.Since(start).Seconds())
	p.log.Debug("Served", "method", r.Method, "path", r.URL.Path, "class", class, "source", snap.Source, "status", snap.Status)
}

// bufferBody reads the body once so strategies can replay it.
func (p *Proxy) bufferBody(w http.ResponseWriter, r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body := r.Body
	if p.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, p.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	r.ContentLength = int64(len(data))
	return nil
}

// WriteSnapshot writes snap and tags it with its source.
func WriteSnapshot(w http.ResponseWriter, snap *domain.Snapshot) {
	h := w.Header()
	for k, v := range snap.Header {
		h[k] = append([]string(nil), v...)
	}
	source := snap.Source
	if source == "" {
		source = domain.SourceNetwork
	}
	h.Set(domain.SourceHeader, string(source))
	if snap.Status != http.StatusNoContent && snap.Status != http.StatusNotModified {
		h.Set("Content-Length", strconv.Itoa(len(snap.Body)))
	}
	w.WriteHeader(snap.Status)
	if len(snap.Body) > 0 {
		w.Write(snap.Body)
	}
}
