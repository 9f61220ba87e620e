// Package sqlite provides the file-backed token store, the default durable backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/migrate"
	"github.com/target/mmk-console/internal/ports"
	_ "modernc.org/sqlite"
)

var _ ports.TokenStore = (*TokenStore)(nil)

// TokenStore keeps scoped key-value pairs in the token_store table.
type TokenStore struct {
	db    *sql.DB
	scope string
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path, scope string) (*TokenStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := migrate.Run(ctx, db, migrate.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &TokenStore{db: db, scope: scope}, nil
}

func (s *TokenStore) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *TokenStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *TokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM token_store WHERE scope = ? AND key = ?`, s.scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainauth.ErrNotFound
		}
		return nil, fmt.Errorf("select token value: %w", err)
	}
	return value, nil
}

func (s *TokenStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_store (scope, key, value) VALUES (?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		s.scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert token value: %w", err)
	}
	return nil
}

func (s *TokenStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM token_store WHERE scope = ? AND key = ?`, s.scope, key,
	); err != nil {
		return fmt.Errorf("delete token value: %w", err)
	}
	return nil
}
