package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/outpost/internal/core/domain"
)

type recordingDisplayer struct {
	shown  []domain.Notification
	opened []string
	err    error
}

func (r *recordingDisplayer) Show(ctx context.Context, n domain.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.shown = append(r.shown, n)
	return nil
}

func (r *recordingDisplayer) Open(ctx context.Context, url string) error {
	r.opened = append(r.opened, url)
	return nil
}

var defaults = Defaults{Title: "Notification", Icon: "/icon-192.png", Badge: "/icon-192.png", ClickURL: "/"}

func newDispatcher(t *testing.T, d Displayer) *Dispatcher {
	t.Helper()
	disp, err := NewDispatcher(d, defaults)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	return disp
}

func TestNormalize(t *testing.T) {
	d := newDispatcher(t, &recordingDisplayer{})

	tests := []struct {
		name    string
		channel Channel
		data    string
		expect  domain.Notification
		wantErr bool
	}{
		{
			name:    "generic full",
			channel: ChannelGeneric,
			data:    `{"title":"Reminder","body":"Buy milk","url":"/tasks/1"}`,
			expect:  domain.Notification{Title: "Reminder", Body: "Buy milk", Icon: "/icon-192.png", Badge: "/icon-192.png", URL: "/tasks/1"},
		},
		{
			name:    "generic empty object",
			channel: ChannelGeneric,
			data:    `{}`,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png", Badge: "/icon-192.png"},
		},
		{
			name:    "generic no data",
			channel: ChannelGeneric,
			data:    ``,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png", Badge: "/icon-192.png"},
		},
		{
			name:    "generic empty title",
			channel: ChannelGeneric,
			data:    `{"title":"","body":"b"}`,
			expect:  domain.Notification{Title: "Notification", Body: "b", Icon: "/icon-192.png", Badge: "/icon-192.png"},
		},
		{
			name:    "generic not json",
			channel: ChannelGeneric,
			data:    `not json`,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png", Badge: "/icon-192.png"},
			wantErr: true,
		},
		{
			name:    "generic wrong type",
			channel: ChannelGeneric,
			data:    `{"title":42}`,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png", Badge: "/icon-192.png"},
			wantErr: true,
		},
		{
			name:    "vendor full",
			channel: ChannelVendor,
			data:    `{"notification":{"title":"Hi","body":"there","icon":"/custom.png"}}`,
			expect:  domain.Notification{Title: "Hi", Body: "there", Icon: "/custom.png"},
		},
		{
			name:    "vendor missing envelope",
			channel: ChannelVendor,
			data:    `{"data":{"k":"v"}}`,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png"},
		},
		{
			name:    "vendor bad envelope",
			channel: ChannelVendor,
			data:    `{"notification":"oops"}`,
			expect:  domain.Notification{Title: "Notification", Icon: "/icon-192.png"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Normalize(tt.channel, []byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrDeserialization) {
					t.Errorf("expected DeserializationError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("got %+v, want %+v", got, tt.expect)
			}
		})
	}
}

func TestDispatch_MalformedStillShown(t *testing.T) {
	rec := &recordingDisplayer{}
	d := newDispatcher(t, rec)

	n, err := d.Dispatch(context.Background(), ChannelGeneric, []byte(`{broken`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(rec.shown) != 1 || rec.shown[0].Title != "Notification" {
		t.Errorf("expected default notification shown, got %+v", rec.shown)
	}
	if n.Title != "Notification" {
		t.Errorf("unexpected returned notification %+v", n)
	}
}

func TestDispatch_DisplayFailure(t *testing.T) {
	d := newDispatcher(t, &recordingDisplayer{err: errors.New("no display")})
	if _, err := d.Dispatch(context.Background(), ChannelGeneric, []byte(`{}`)); err == nil {
		t.Errorf("expected display error")
	}
}

func TestClick(t *testing.T) {
	rec := &recordingDisplayer{}
	d := newDispatcher(t, rec)
	ctx := context.Background()

	if url, _ := d.Click(ctx, domain.Notification{URL: "/tasks/7"}); url != "/tasks/7" {
		t.Errorf("expected notification url, got %s", url)
	}
	if url, _ := d.Click(ctx, domain.Notification{}); url != "/" {
		t.Errorf("expected default url, got %s", url)
	}
	if len(rec.opened) != 2 {
		t.Errorf("expected two opens, got %v", rec.opened)
	}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{"": ChannelGeneric, "generic": ChannelGeneric, "vendor": ChannelVendor} {
		got, err := ParseChannel(in)
		if err != nil || got != want {
			t.Errorf("ParseChannel(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseChannel("sms"); err == nil {
		t.Errorf("expected error for unknown channel")
	}
}
