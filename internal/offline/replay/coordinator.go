// Package replay drains the outbox against the mutation endpoint. Delivery is
// strictly sequential in id order and stops at the first failure, so entries
// are delivered at least once and never out of order.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

const historySize = 20

// Outbox is the part of the queue the coordinator needs.
type Outbox interface {
	Outbox(ctx context.Context) ([]domain.OutboxEntry, error)
	DeleteOutbox(ctx context.Context, id int64) error
}

// Result describes one drain attempt.
type Result struct {
	Delivered  int       `json:"delivered"`
	Remaining  int       `json:"remaining"`
	Complete   bool      `json:"complete"`
	Skipped    bool      `json:"skipped,omitempty"`
	Err        error     `json:"-"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Reason returns the failure message, if any.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Coordinator owns the Idle/Draining state machine. Only one drain runs at a
// time; a signal that arrives mid-drain is a no-op.
type Coordinator struct {
	outbox    Outbox
	deliverer Deliverer
	tag       string

	mu         sync.Mutex
	state      State
	history    []Transition
	lastResult *Result

	log *slog.Logger
}

// NewCoordinator creates an idle coordinator that answers to tag.
func NewCoordinator(outbox Outbox, deliverer Deliverer, tag string) *Coordinator {
	if tag == "" {
		tag = domain.DefaultSyncTag
	}
	return &Coordinator{
		outbox:    outbox,
		deliverer: deliverer,
		tag:       tag,
		state:     domain.SyncStateIdle,
		log:       slog.Default().With("component", "replay"),
	}
}

// Tag returns the sync tag the coordinator answers to.
func (c *Coordinator) Tag() string { return c.tag }

// Signal runs a drain when tag matches; other tags are ignored.
func (c *Coordinator) Signal(ctx context.Context, tag string) (Result, bool) {
	if tag != c.tag {
		c.log.Debug("Ignoring sync signal", "tag", tag)
		return Result{}, false
	}
	return c.Drain(ctx), true
}

// Drain delivers every queued entry in ascending id order, removing each one
// only after the origin confirms it. The first failure ends the drain.
func (c *Coordinator) Drain(ctx context.Context) (res Result) {
	if !c.begin() {
		metrics.DrainsTotal.WithLabelValues("skipped").Inc()
		c.log.Debug("Drain already in progress")
		return Result{Skipped: true}
	}

	res.StartedAt = time.Now()
	defer func() {
		res.FinishedAt = time.Now()
		c.finish(res)
	}()

	entries, err := c.outbox.Outbox(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Remaining = len(entries)

	for _, entry := range entries {
		if err := c.deliverer.Deliver(ctx, entry); err != nil {
			res.Err = fmt.Errorf("deliver entry %d: %w", entry.ID, err)
			return res
		}
		// Confirmed. A failure to remove means it will be delivered again.
		if err := c.outbox.DeleteOutbox(ctx, entry.ID); err != nil {
			res.Err = fmt.Errorf("remove entry %d: %w", entry.ID, err)
			return res
		}
		res.Delivered++
		res.Remaining--
		metrics.EntriesDelivered.Inc()
	}

	res.Complete = true
	return res
}

func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.SyncStateDraining {
		return false
	}
	c.transitionLocked(domain.SyncStateDraining, "sync signal")
	return true
}

func (c *Coordinator) finish(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reason := "drain complete"
	result := "complete"
	switch {
	case res.Err != nil && res.Delivered > 0:
		reason, result = "drain incomplete", "partial"
	case res.Err != nil:
		reason, result = "drain incomplete", "failed"
	}
	metrics.DrainsTotal.WithLabelValues(result).Inc()

	if res.Err != nil {
		c.log.Warn("Drain incomplete", "delivered", res.Delivered, "remaining", res.Remaining, "error", res.Err)
	} else if res.Delivered > 0 {
		c.log.Info("Outbox drained", "delivered", res.Delivered)
	}

	c.lastResult = &res
	c.transitionLocked(domain.SyncStateIdle, reason)
}

func (c *Coordinator) transitionLocked(to State, reason string) {
	if !CanTransition(c.state, to) {
		c.log.Error("Invalid sync transition", "from", c.state, "to", to, "error", ErrInvalidTransition)
		return
	}
	t := NewTransition(c.state, to, reason)
	c.state = to
	c.history = append(c.history, t)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastResult returns the most recent finished drain.
func (c *Coordinator) LastResult() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return Result{}, false
	}
	return *c.lastResult, true
}

// History returns recent state transitions, oldest first.
func (c *Coordinator) History() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transition(nil), c.history...)
}
