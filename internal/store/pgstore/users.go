package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

const userColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`

type users struct {
	b *Backend
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *users) Create(ctx context.Context, u *model.User) error {
	pool, err := r.b.acquire()
	if err != nil {
		return err
	}
	store.PrepareUser(u)
	_, err = pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	return scanUser(pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *users) FindByID(ctx context.Context, id string) (*model.User, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	return scanUser(pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *users) List(ctx context.Context) ([]model.User, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *users) SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.User, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	return scanUser(pool.QueryRow(ctx, `
		UPDATE users SET is_admin=$1, updated_at=$2
		WHERE id=$3
		RETURNING `+userColumns, isAdmin, time.Now().UTC(), id))
}

func (r *users) Count(ctx context.Context) (int64, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
