// Package postgres provides a token store for deployments that share a Postgres database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Register the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/migrate"
	"github.com/target/mmk-console/internal/ports"
)

var _ ports.TokenStore = (*TokenStore)(nil)

// Options configures a Postgres token store.
type Options struct {
	DSN         string
	Scope       string
	PingTimeout time.Duration // Optional, defaults to 5s
	Logger      *slog.Logger
}

// TokenStore keeps scoped key-value pairs in the token_store table.
type TokenStore struct {
	db     *sql.DB
	scope  string
	logger *slog.Logger
}

// Open connects to Postgres and applies the schema.
func Open(ctx context.Context, opts Options) (*TokenStore, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := New(db, opts.Scope, opts.Logger)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle. Callers own the schema via EnsureSchema.
func New(db *sql.DB, scope string, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{db: db, scope: scope, logger: logger.With("component", "postgres_token_store")}
}

// EnsureSchema applies pending migrations.
func (s *TokenStore) EnsureSchema(ctx context.Context) error {
	if err := migrate.Run(ctx, s.db, migrate.Postgres); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (s *TokenStore) Close() error { return s.db.Close() }

func (s *TokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.withSchema(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT value FROM token_store WHERE scope = $1 AND key = $2`, s.scope, key,
		).Scan(&value)
	})
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
	err := s.withSchema(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO token_store (scope, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			s.scope, key, value,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert token value: %w", err)
	}
	return nil
}

func (s *TokenStore) Remove(ctx context.Context, key string) error {
	err := s.withSchema(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM token_store WHERE scope = $1 AND key = $2`, s.scope, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete token value: %w", err)
	}
	return nil
}

// withSchema runs fn and, if the table was dropped underneath us, recreates it and retries once.
func (s *TokenStore) withSchema(ctx context.Context, fn func() error) error {
	err := fn()
	if !IsUndefinedTable(err) {
		return err
	}
	s.logger.WarnContext(ctx, "token_store table missing; reapplying schema")
	if schemaErr := migrate.Reapply(ctx, s.db, migrate.Postgres); schemaErr != nil {
		return errors.Join(err, schemaErr)
	}
	return fn()
}

// IsUndefinedTable reports whether err is Postgres error 42P01.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}
