// Package pgstore is the PostgreSQL backend, selected by postgres:// and
// postgresql:// URIs.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

const (
	codeUniqueViolation      = "23505"
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
)

// Backend owns a pgx pool created on Connect.
type Backend struct {
	cfg *pgxpool.Config

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// New parses dsn and applies the connector timeouts. The pool itself is
// created on Connect.
func New(dsn string, opts database.Options) (*Backend, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	if opts.ServerSelectionTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ServerSelectionTimeout
	}
	if opts.SocketTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.SocketTimeout.Milliseconds(), 10)
	}
	return &Backend{cfg: cfg}, nil
}

// Connect opens the pool, pings it and ensures the schema. pgx exposes no
// connectivity monitor, so no events are emitted after a successful connect.
func (b *Backend) Connect(ctx context.Context, events database.Sink) error {
	pool, err := pgxpool.NewWithConfig(ctx, b.cfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", translate(err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", translate(err))
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	b.mu.Lock()
	b.pool = pool
	b.mu.Unlock()
	return nil
}

// Disconnect closes the pool, waiting for acquired connections to be
// released or ctx to expire.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	pool := b.pool
	b.pool = nil
	b.mu.Unlock()
	if pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close pool: %w", ctx.Err())
	}
}

func (b *Backend) Users() store.Users { return &users{b: b} }
func (b *Backend) Books() store.Books { return &books{b: b} }

func (b *Backend) acquire() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pool == nil {
		return nil, database.ErrNotConnected
	}
	return b.pool, nil
}

// EnsureSchema creates the tables if needed. Keeping the migration in code
// lets a fresh database bootstrap without a separate tool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	rating INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	cover_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id, created_at DESC);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// translate marks credential failures with database.ErrAuthentication.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeInvalidPassword || pgErr.Code == codeInvalidAuthorization) {
		return fmt.Errorf("%w: %v", database.ErrAuthentication, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
