package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/infra/storage/memory"
)

func TestConfigScheme(t *testing.T) {
	tests := []struct {
		dsn    string
		expect string
	}{
		{"sqlite://data/outpost.db", "sqlite"},
		{"data/outpost.db", "sqlite"},
		{"postgres://u:p@localhost/db", "postgres"},
		{"PQ://u@localhost/db", "pq"},
		{"redis://localhost:6379/0", "redis"},
		{"memory://", "memory"},
	}

	for _, tt := range tests {
		got, err := Config{DSN: tt.dsn}.Scheme()
		if err != nil {
			t.Errorf("Scheme(%q) failed: %v", tt.dsn, err)
			continue
		}
		if got != tt.expect {
			t.Errorf("Scheme(%q) = %q, want %q", tt.dsn, got, tt.expect)
		}
	}
}

func TestNewOpener_RejectsUnknownScheme(t *testing.T) {
	if _, err := NewOpener(Config{DSN: "kafka://broker:9092"}); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
	if _, err := NewOpener(Config{DSN: ""}); err == nil {
		t.Fatalf("expected empty dsn error")
	}
}

func TestNewOpener_Memory(t *testing.T) {
	open, err := NewOpener(Config{DSN: "memory://"})
	if err != nil {
		t.Fatalf("NewOpener failed: %v", err)
	}
	store, err := open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*memory.MemoryStorage); !ok {
		t.Errorf("expected memory store, got %T", store)
	}
}

func TestNewOpener_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outpost.db")
	open, err := NewOpener(Config{DSN: "sqlite://" + path})
	if err != nil {
		t.Fatalf("NewOpener failed: %v", err)
	}
	store, err := open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), "b", "k", []byte("v")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
}

func TestRegister_CustomScheme(t *testing.T) {
	called := false
	Register("custom", func(ctx context.Context, cfg Config) (storage.Store, error) {
		called = true
		return memory.NewMemoryStorage(), nil
	})

	open, err := NewOpener(Config{DSN: "custom://anything"})
	if err != nil {
		t.Fatalf("NewOpener failed: %v", err)
	}
	if _, err := open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !called {
		t.Errorf("expected custom factory to be used")
	}
}
