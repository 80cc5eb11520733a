package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	metaSchemaVersion = "schema_version"
	metaLastExport    = "last_export_at"
)

// SetMetadata upserts a key-value pair in the journal_metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO journal_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM journal_metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// LastExport returns when the journal was last exported, or nil.
func (s *Store) LastExport(ctx context.Context) (*time.Time, error) {
	v, err := s.GetMetadata(ctx, metaLastExport)
	if err != nil || v == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
