// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vietddude/outpost/internal/infra/storage"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "b", "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustPut(t, s, "b", "k", "one")
		mustPut(t, s, "b", "k", "two")

		got, err := s.Get(ctx, "b", "k")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !bytes.Equal(got, []byte("two")) {
			t.Errorf("expected overwrite, got %q", got)
		}

		records, err := s.List(ctx, "b")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record after overwrite, got %d", len(records))
		}
	})

	t.Run("AppendIDsIncrease", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var last int64
		for i := 0; i < 3; i++ {
			id, err := s.Append(ctx, "q", []byte{byte('a' + i)})
			if err != nil {
				t.Fatalf("append failed: %v", err)
			}
			if id <= last {
				t.Errorf("append id %d not greater than %d", id, last)
			}
			last = id
		}

		// ids are never reused, even after the newest record is removed
		if err := s.Delete(ctx, "q", storage.FormatID(last)); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		id, err := s.Append(ctx, "q", []byte("d"))
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if id <= last {
			t.Errorf("id %d reused after delete (last %d)", id, last)
		}
	})

	t.Run("ListKeepsInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustPut(t, s, "b", "zeta", "1")
		mustPut(t, s, "b", "alpha", "2")
		mustPut(t, s, "b", "mid", "3")
		mustPut(t, s, "b", "zeta", "4")

		records, err := s.List(ctx, "b")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		want := []string{"zeta", "alpha", "mid"}
		if len(records) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(records))
		}
		for i, k := range want {
			if records[i].Key != k {
				t.Errorf("record %d: expected key %q, got %q", i, k, records[i].Key)
			}
		}
		if string(records[0].Value) != "4" {
			t.Errorf("expected overwritten value, got %q", records[0].Value)
		}
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete(context.Background(), "b", "nothing"); err != nil {
			t.Errorf("expected nil deleting missing key, got %v", err)
		}
	})

	t.Run("BucketsAndDrop", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustPut(t, s, "cache:shell-cache-v1", "k", "v")
		mustPut(t, s, "cache:img-cache-v1", "k", "v")
		mustPut(t, s, "outbox", "1", "v")

		names, err := s.Buckets(ctx, "cache:")
		if err != nil {
			t.Fatalf("buckets failed: %v", err)
		}
		if len(names) != 2 {
			t.Fatalf("expected 2 cache buckets, got %v", names)
		}

		if err := s.DropBucket(ctx, "cache:img-cache-v1"); err != nil {
			t.Fatalf("drop failed: %v", err)
		}
		names, err = s.Buckets(ctx, "cache:")
		if err != nil {
			t.Fatalf("buckets failed: %v", err)
		}
		if len(names) != 1 || names[0] != "cache:shell-cache-v1" {
			t.Errorf("unexpected buckets after drop: %v", names)
		}
		if _, err := s.Get(ctx, "cache:img-cache-v1", "k"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected dropped record to be gone, got %v", err)
		}
		if err := s.DropBucket(ctx, "cache:never-existed"); err != nil {
			t.Errorf("dropping unknown bucket should be a no-op, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})
}

func mustPut(t *testing.T, s storage.Store, bucket, key, value string) {
	t.Helper()
	if err := s.Put(context.Background(), bucket, key, []byte(value)); err != nil {
		t.Fatalf("put %s/%s failed: %v", bucket, key, err)
	}
}
