package network

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
)

func TestFetch_ForwardsRequest(t *testing.T) {
	var gotMethod, gotURI, gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURI = r.URL.RequestURI()
		gotHeader = r.Header.Get("X-Client")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	r := httptest.NewRequest(http.MethodPost, "/api/entries?x=1", strings.NewReader(`{"t":"a"}`))
	r.Header.Set("X-Client", "demo")
	r.Header.Set("Connection", "close")

	snap, err := c.Fetch(context.Background(), r)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotURI != "/api/entries?x=1" {
		t.Errorf("unexpected upstream request %s %s", gotMethod, gotURI)
	}
	if gotBody != `{"t":"a"}` || gotHeader != "demo" {
		t.Errorf("body or header not forwarded: %q %q", gotBody, gotHeader)
	}
	if snap.Status != http.StatusCreated || string(snap.Body) != `{"ok":true}` {
		t.Errorf("unexpected snapshot: %d %s", snap.Status, snap.Body)
	}
	if snap.Source != domain.SourceNetwork {
		t.Errorf("expected network source, got %s", snap.Source)
	}

	// The body is still readable for a later fetch of the same request.
	b, _ := io.ReadAll(r.Body)
	if string(b) != `{"t":"a"}` {
		t.Errorf("request body consumed: %q", b)
	}
}

func TestFetch_ErrorStatusIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL, time.Second, 0).Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if snap.Status != http.StatusNotFound || snap.OK() {
		t.Errorf("expected 404 snapshot, got %d", snap.Status)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, 0)
	_, err := c.Get(context.Background(), "/")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if c.GetHealth().LastFailureAt.IsZero() {
		t.Errorf("expected failure to be recorded")
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 16).Get(context.Background(), "/big")
	if !errors.Is(err, ErrBodyTooLarge) || !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("expected oversized body to be a network error, got %v", err)
	}
}
