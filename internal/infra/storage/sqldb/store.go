package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/outpost/internal/infra/storage"
)

// Store implements storage.Store on a single kv_records table.
type Store struct {
	db  *DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps an open, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// DB exposes the underlying connection for metrics and admin queries.
func (s *Store) DB() *DB { return s.db }

type recordRow struct {
	Key   string `db:"record_key"`
	Value []byte `db:"value"`
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	query := `SELECT value FROM kv_records WHERE bucket = ? AND record_key = ?`
	var value []byte
	err := s.db.GetContext(ctx, &value, s.db.Rebind(query), bucket, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, value []byte) error {
	query := `
		INSERT INTO kv_records (bucket, record_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (bucket, record_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), bucket, key, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, bucket string, value []byte) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append %s: begin: %w", bucket, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	nextID := `
		INSERT INTO kv_sequences (bucket, last_id) VALUES (?, 1)
		ON CONFLICT (bucket) DO UPDATE SET last_id = kv_sequences.last_id + 1
		RETURNING last_id
	`
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(nextID), bucket); err != nil {
		return 0, fmt.Errorf("append %s: next id: %w", bucket, err)
	}

	if value == nil {
		value = []byte{}
	}
	insert := `INSERT INTO kv_records (bucket, record_key, value, updated_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(insert), bucket, storage.FormatID(id), value, s.now().UnixMilli()); err != nil {
		return 0, fmt.Errorf("append %s: insert: %w", bucket, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append %s: commit: %w", bucket, err)
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	query := `DELETE FROM kv_records WHERE bucket = ? AND record_key = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), bucket, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, bucket string) ([]storage.Record, error) {
	query := `SELECT record_key, value FROM kv_records WHERE bucket = ? ORDER BY seq ASC`
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), bucket); err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	out := make([]storage.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, storage.Record{Key: r.Key, Value: r.Value})
	}
	return out, nil
}

func (s *Store) Buckets(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT bucket FROM kv_records ORDER BY bucket`); err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	out := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *Store) DropBucket(ctx context.Context, bucket string) error {
	query := `DELETE FROM kv_records WHERE bucket = ?`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), bucket); err != nil {
		return fmt.Errorf("drop %s: %w", bucket, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
