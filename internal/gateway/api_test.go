package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/infra/network"
	"github.com/vietddude/outpost/internal/infra/storage/memory"
	"github.com/vietddude/outpost/internal/offline/cache"
	"github.com/vietddude/outpost/internal/offline/entries"
	"github.com/vietddude/outpost/internal/offline/lifecycle"
	"github.com/vietddude/outpost/internal/offline/notify"
	"github.com/vietddude/outpost/internal/offline/queue"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// fakeOrigin serves static files and records posted entries. With down set
// the entries endpoint answers 503.
type fakeOrigin struct {
	mu      sync.Mutex
	down    bool
	entries []string
}

func (o *fakeOrigin) setDown(v bool) {
	o.mu.Lock()
	o.down = v
	o.mu.Unlock()
}

func (o *fakeOrigin) posted() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.entries...)
}

func (o *fakeOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/entries" {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		o.entries = append(o.entries, string(body))
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.Write([]byte("file " + r.URL.Path))
}

type connFlag struct {
	mu     sync.Mutex
	online bool
}

func (c *connFlag) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

type recordingDisplay struct {
	mu     sync.Mutex
	shown  []domain.Notification
	opened []string
}

func (d *recordingDisplay) Show(ctx context.Context, n domain.Notification) error {
	d.mu.Lock()
	d.shown = append(d.shown, n)
	d.mu.Unlock()
	return nil
}

func (d *recordingDisplay) Open(ctx context.Context, url string) error {
	d.mu.Lock()
	d.opened = append(d.opened, url)
	d.mu.Unlock()
	return nil
}

type apiFixture struct {
	handler http.Handler
	origin  *fakeOrigin
	conn    *connFlag
	display *recordingDisplay
	queue   *queue.Queue
	cache   *cache.Store
	entries *entries.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	origin := &fakeOrigin{}
	srv := httptest.NewServer(origin)
	t.Cleanup(srv.Close)

	store := memory.NewMemoryStorage()
	q := queue.New(store)
	keys, err := cache.NewKeyer(nil)
	if err != nil {
		t.Fatalf("NewKeyer: %v", err)
	}
	cs := cache.New(store, keys)
	client := network.NewClient(srv.URL, 2*time.Second, 0)

	deliverer := replay.NewHTTPDeliverer(client, "/api/entries", time.Second)
	coordinator := replay.NewCoordinator(q, deliverer, domain.DefaultSyncTag)

	display := &recordingDisplay{}
	dispatcher, err := notify.NewDispatcher(display, notify.Defaults{Icon: "/icon-192.png", Badge: "/icon-192.png"})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	signals := NewSignals(coordinator, dispatcher)

	conn := &connFlag{online: true}
	svc := entries.NewService(q, entries.DelivererWriter{Deliverer: deliverer}, conn, signals.Raise, domain.DefaultSyncTag)

	regions := domain.RegionSet{Shell: "shell-cache-v1", Image: "img-cache-v1", Data: "data-cache-v1"}
	lc := lifecycle.NewManager(cs, client, regions, []string{"/", "/offline.html"})

	api := NewAPI(signals, svc, q, lc, domain.DefaultSyncTag)
	return &apiFixture{handler: api.Routes(), origin: origin, conn: conn, display: display, queue: q, cache: cs, entries: svc}
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestAPI_EntryOnlineDelivered(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/_outpost/entries", `{"text":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var out entries.Outcome
	decode(t, rec, &out)
	if !out.Delivered || out.Queued != nil {
		t.Errorf("expected direct delivery, got %+v", out)
	}
	if got := f.origin.posted(); len(got) != 1 || got[0] != `{"text":"hello"}` {
		t.Errorf("unexpected origin writes %v", got)
	}

	rec = f.do(t, http.MethodGet, "/_outpost/entries", "")
	var list []domain.LocalEntry
	decode(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 local entry, got %d", len(list))
	}
}

func TestAPI_OfflineEntryQueuedThenSynced(t *testing.T) {
	f := newAPIFixture(t)
	f.conn.mu.Lock()
	f.conn.online = false
	f.conn.mu.Unlock()

	for _, body := range []string{`{"n":1}`, `{"n":2}`} {
		rec := f.do(t, http.MethodPost, "/_outpost/entries", body)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := f.do(t, http.MethodGet, "/_outpost/outbox", "")
	var pending []domain.OutboxEntry
	decode(t, rec, &pending)
	if len(pending) != 2 {
		t.Fatalf("expected 2 queued entries, got %d", len(pending))
	}

	rec = f.do(t, http.MethodPost, "/_outpost/sync", "")
	var res struct {
		Ran       bool   `json:"ran"`
		Delivered int    `json:"delivered"`
		Complete  bool   `json:"complete"`
		Error     string `json:"error"`
	}
	decode(t, rec, &res)
	if !res.Ran || res.Delivered != 2 || !res.Complete || res.Error != "" {
		t.Errorf("unexpected sync result %+v", res)
	}
	if got := f.origin.posted(); len(got) != 2 || got[0] != `{"n":1}` || got[1] != `{"n":2}` {
		t.Errorf("expected entries in order, got %v", got)
	}
}

func TestAPI_SyncFailureKeepsEntries(t *testing.T) {
	f := newAPIFixture(t)
	f.origin.setDown(true)

	// Online write fails, so the entry is queued.
	rec := f.do(t, http.MethodPost, "/_outpost/entries", `{"n":1}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	f.entries.Wait()

	rec = f.do(t, http.MethodPost, "/_outpost/sync", "")
	var res struct {
		Ran      bool   `json:"ran"`
		Complete bool   `json:"complete"`
		Error    string `json:"error"`
	}
	decode(t, rec, &res)
	if !res.Ran || res.Complete || res.Error == "" {
		t.Errorf("expected failed drain, got %+v", res)
	}

	depth, err := f.queue.Depth(context.Background(), domain.RegionOutbox)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 1 {
		t.Errorf("expected entry to stay queued, depth %d", depth)
	}
}

func TestAPI_SyncUnknownTag(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/_outpost/sync?tag=other", "")
	var res struct {
		Ran bool `json:"ran"`
	}
	decode(t, rec, &res)
	if res.Ran {
		t.Error("expected unknown tag to be ignored")
	}
}

func TestAPI_EntryInvalidPayload(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/_outpost/entries", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAPI_Push(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/_outpost/push?channel=vendor", `{"notification":{"title":"Hi","icon":"/v.png"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var n domain.Notification
	decode(t, rec, &n)
	if n.Title != "Hi" || n.Icon != "/v.png" || n.Badge != "" {
		t.Errorf("unexpected notification %+v", n)
	}

	rec = f.do(t, http.MethodPost, "/_outpost/push", `not json`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected malformed push to still be shown, got %d", rec.Code)
	}
	decode(t, rec, &n)
	if n.Title != "Notification" {
		t.Errorf("expected default title, got %q", n.Title)
	}
	if len(f.display.shown) != 2 {
		t.Errorf("expected 2 notifications shown, got %d", len(f.display.shown))
	}

	rec = f.do(t, http.MethodPost, "/_outpost/push?channel=carrier-pigeon", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown channel, got %d", rec.Code)
	}
}

func TestAPI_Click(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/_outpost/click", `{"url":"/inbox"}`)
	var out map[string]string
	decode(t, rec, &out)
	if out["url"] != "/inbox" {
		t.Errorf("expected /inbox, got %q", out["url"])
	}

	rec = f.do(t, http.MethodPost, "/_outpost/click", "")
	decode(t, rec, &out)
	if out["url"] != "/" {
		t.Errorf("expected default click url, got %q", out["url"])
	}
}

func TestAPI_InstallAndActivate(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	if err := f.cache.Put(ctx, "shell-cache-v0", "GET /", &domain.Snapshot{Status: http.StatusOK}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/_outpost/install", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	snap, err := f.cache.Get(ctx, "shell-cache-v1", f.cache.Keys().Path("/offline.html"))
	if err != nil || snap == nil {
		t.Fatalf("expected offline page precached, got %v %v", snap, err)
	}

	rec = f.do(t, http.MethodPost, "/_outpost/activate", "")
	var out struct {
		Deleted []string `json:"deleted"`
	}
	decode(t, rec, &out)
	if len(out.Deleted) != 1 || out.Deleted[0] != "shell-cache-v0" {
		t.Errorf("expected old shell deleted, got %v", out.Deleted)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{queue.ErrInvalidPayload, http.StatusBadRequest},
		{&domain.StorageError{Op: "put", Err: errors.New("disk full")}, http.StatusServiceUnavailable},
		{&domain.NetworkError{URL: "/", Err: errors.New("refused")}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
