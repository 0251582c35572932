// Package notify normalizes push payloads and hands them to the host's
// display capability. A malformed payload never drops the notification: the
// defaults are shown instead.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vietddude/outpost/internal/core/domain"
	"github.com/vietddude/outpost/internal/offline/metrics"
)

// Channel names the push transport a payload arrived on.
type Channel string

const (
	// ChannelGeneric carries {title?, body?, url?}.
	ChannelGeneric Channel = "generic"
	// ChannelVendor carries {notification: {title?, body?, icon?}}.
	ChannelVendor Channel = "vendor"
)

// ParseChannel maps a query value to a channel; empty means generic.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case "", ChannelGeneric:
		return ChannelGeneric, nil
	case ChannelVendor:
		return ChannelVendor, nil
	default:
		return "", fmt.Errorf("unknown push channel %q", s)
	}
}

// Displayer is the host's notification capability.
type Displayer interface {
	Show(ctx context.Context, n domain.Notification) error
	Open(ctx context.Context, url string) error
}

// Defaults fill in absent payload fields.
type Defaults struct {
	Title    string
	Icon     string
	Badge    string
	ClickURL string
}

// Dispatcher turns raw push payloads into displayed notifications.
type Dispatcher struct {
	display  Displayer
	defaults Defaults
	schemas  map[Channel]*jsonschema.Schema
	log      *slog.Logger
}

// NewDispatcher compiles the payload schemas.
func NewDispatcher(display Displayer, defaults Defaults) (*Dispatcher, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if defaults.Title == "" {
		defaults.Title = "Notification"
	}
	if defaults.ClickURL == "" {
		defaults.ClickURL = "/"
	}
	return &Dispatcher{
		display:  display,
		defaults: defaults,
		schemas:  schemas,
		log:      slog.Default().With("component", "notify"),
	}, nil
}

// Normalize decodes data for channel. On a malformed payload it returns the
// default notification together with a *domain.DeserializationError.
func (d *Dispatcher) Normalize(channel Channel, data []byte) (domain.Notification, error) {
	n := d.fallback(channel)
	if len(data) == 0 {
		return n, nil
	}

	sch, ok := d.schemas[channel]
	if !ok {
		return n, &domain.DeserializationError{Channel: string(channel), Err: errors.New("unknown channel")}
	}
	if err := validate(sch, data); err != nil {
		return d.fallback(channel), &domain.DeserializationError{Channel: string(channel), Err: err}
	}

	switch channel {
	case ChannelVendor:
		var p domain.VendorPushPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return d.fallback(channel), &domain.DeserializationError{Channel: string(channel), Err: err}
		}
		if p.Notification != nil {
			n.Title = orDefault(p.Notification.Title, n.Title)
			n.Body = orDefault(p.Notification.Body, "")
			n.Icon = orDefault(p.Notification.Icon, n.Icon)
		}
	default:
		var p domain.PushPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return d.fallback(channel), &domain.DeserializationError{Channel: string(channel), Err: err}
		}
		n.Title = orDefault(p.Title, n.Title)
		n.Body = orDefault(p.Body, "")
		n.URL = orDefault(p.URL, "")
	}
	return n, nil
}

// Dispatch normalizes data and shows it. Only a display failure is returned;
// decode problems are logged and the defaults are shown.
func (d *Dispatcher) Dispatch(ctx context.Context, channel Channel, data []byte) (domain.Notification, error) {
	n, err := d.Normalize(channel, data)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(channel), "malformed").Inc()
		d.log.Warn("Malformed push payload, using defaults", "channel", channel, "error", err)
	}

	if err := d.display.Show(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(channel), "display_failed").Inc()
		return n, fmt.Errorf("show notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(string(channel), "shown").Inc()
	return n, nil
}

// Click opens the notification's URL, or the default click URL.
func (d *Dispatcher) Click(ctx context.Context, n domain.Notification) (string, error) {
	url := n.URL
	if url == "" {
		url = d.defaults.ClickURL
	}
	if err := d.display.Open(ctx, url); err != nil {
		return url, fmt.Errorf("open %s: %w", url, err)
	}
	return url, nil
}

func (d *Dispatcher) fallback(channel Channel) domain.Notification {
	n := domain.Notification{Title: d.defaults.Title, Icon: d.defaults.Icon}
	if channel == ChannelGeneric {
		n.Badge = d.defaults.Badge
	}
	return n
}

func orDefault(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
