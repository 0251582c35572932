package gateway

import (
	"context"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/notify"
	"github.com/vietddude/outpost/internal/offline/replay"
)

// Signals handles host signals: sync tags, push payloads and notification clicks.
type Signals struct {
	coordinator *replay.Coordinator
	dispatcher  *notify.Dispatcher
}

// NewSignals creates the signal handler.
func NewSignals(coordinator *replay.Coordinator, dispatcher *notify.Dispatcher) *Signals {
	return &Signals{coordinator: coordinator, dispatcher: dispatcher}
}

// Sync runs a drain when tag is the coordinator's tag. A drain failure is
// reported in the result, never as an error of the signal itself.
func (s *Signals) Sync(ctx context.Context, tag string) (replay.Result, bool) {
	return s.coordinator.Signal(ctx, tag)
}

// Raise is Sync without the result, for use as a callback.
func (s *Signals) Raise(ctx context.Context, tag string) {
	s.coordinator.Signal(ctx, tag)
}

// Push normalizes and shows a push payload.
func (s *Signals) Push(ctx context.Context, channel notify.Channel, data []byte) (domain.Notification, error) {
	return s.dispatcher.Dispatch(ctx, channel, data)
}

// Click routes a notification click and returns the URL opened.
func (s *Signals) Click(ctx context.Context, n domain.Notification) (string, error) {
	return s.dispatcher.Click(ctx, n)
}
