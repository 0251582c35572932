package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/vietddude/outpost/internal/infra/storage"
	"github.com/vietddude/outpost/internal/infra/storage/storagetest"
)

func TestStore_Redis(t *testing.T) {
	url := os.Getenv("OUTPOST_TEST_REDIS_URL")
	if url == "" {
		t.Skip("OUTPOST_TEST_REDIS_URL not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		// A fresh namespace per subtest keeps runs isolated on a shared server.
		client, err := NewClient(context.Background(), Config{URL: url, Namespace: "outpost-test-" + uuid.NewString()})
		if err != nil {
			t.Fatalf("connect redis: %v", err)
		}
		t.Cleanup(func() { client.Close() })
		return NewStore(client)
	})
}
