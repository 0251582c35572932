package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/entries"
	"github.com/vietddude/outpost/internal/offline/lifecycle"
	"github.com/vietddude/outpost/internal/offline/notify"
	"github.com/vietddude/outpost/internal/offline/queue"
)

// AdminPrefix is where the admin API is mounted.
const AdminPrefix = "/_outpost/"

const maxAdminBody = 1 << 20

// API is the admin surface: signals, the entry write path and lifecycle.
type API struct {
	signals   *Signals
	entries   *entries.Service
	queue     *queue.Queue
	lifecycle *lifecycle.Manager
	tag       string
	log       *slog.Logger
}

// NewAPI creates the admin API. tag is the default sync tag.
func NewAPI(signals *Signals, entries *entries.Service, q *queue.Queue, lc *lifecycle.Manager, tag string) *API {
	return &API{
		signals:   signals,
		entries:   entries,
		queue:     q,
		lifecycle: lc,
		tag:       tag,
		log:       slog.Default().With("component", "admin-api"),
	}
}

// Routes returns the admin routes.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /_outpost/sync", a.handleSync)
	mux.HandleFunc("POST /_outpost/push", a.handlePush)
	mux.HandleFunc("POST /_outpost/click", a.handleClick)
	mux.HandleFunc("GET /_outpost/entries", a.handleListEntries)
	mux.HandleFunc("POST /_outpost/entries", a.handleSubmitEntry)
	mux.HandleFunc("GET /_outpost/outbox", a.handleOutbox)
	mux.HandleFunc("POST /_outpost/install", a.handleInstall)
	mux.HandleFunc("POST /_outpost/activate", a.handleActivate)
	return mux
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = a.tag
	}
	res, ran := a.signals.Sync(r.Context(), tag)
	a.log.Debug("Sync signal", "tag", tag, "ran", ran, "delivered", res.Delivered)
	writeJSON(w, http.StatusOK, map[string]any{
		"tag":       tag,
		"ran":       ran,
		"skipped":   res.Skipped,
		"delivered": res.Delivered,
		"remaining": res.Remaining,
		"complete":  res.Complete,
		"error":     res.Reason(),
	})
}

func (a *API) handlePush(w http.ResponseWriter, r *http.Request) {
	channel, err := notify.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := a.signals.Push(r.Context(), channel, data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) handleClick(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody)).Decode(&n); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	url, err := a.signals.Click(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (a *API) handleListEntries(w http.ResponseWriter, r *http.Request) {
	list, err := a.entries.List(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSubmitEntry(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := a.entries.Submit(r.Context(), data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	status := http.StatusCreated
	if !out.Delivered {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

func (a *API) handleOutbox(w http.ResponseWriter, r *http.Request) {
	pending, err := a.queue.Outbox(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (a *API) handleInstall(w http.ResponseWriter, r *http.Request) {
	if err := a.lifecycle.Install(r.Context()); err != nil {
		a.log.Warn("Install requested over admin API failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region": a.lifecycle.Regions().Shell,
		"files":  a.lifecycle.Manifest(),
	})
}

func (a *API) handleActivate(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.lifecycle.Activate(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current": a.lifecycle.Regions().Names(),
		"deleted": deleted,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
