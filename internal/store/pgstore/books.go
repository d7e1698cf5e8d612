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

const bookColumns = `id, owner_id, title, author, status, rating, notes, cover_key, created_at, updated_at`

type books struct {
	b *Backend
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var bk model.Book
	err := row.Scan(&bk.ID, &bk.OwnerID, &bk.Title, &bk.Author, &bk.Status, &bk.Rating,
		&bk.Notes, &bk.CoverKey, &bk.CreatedAt, &bk.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return &bk, nil
}

func (r *books) Create(ctx context.Context, bk *model.Book) error {
	pool, err := r.b.acquire()
	if err != nil {
		return err
	}
	store.PrepareBook(bk)
	_, err = pool.Exec(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, bk.ID, bk.OwnerID, bk.Title, bk.Author, bk.Status, bk.Rating, bk.Notes, bk.CoverKey, bk.CreatedAt, bk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *books) Get(ctx context.Context, ownerID, id string) (*model.Book, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	return scanBook(pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id=$1 AND owner_id=$2`, id, ownerID))
}

func (r *books) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()
	out := make([]model.Book, 0)
	for rows.Next() {
		bk, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *bk)
	}
	return out, rows.Err()
}

func (r *books) Update(ctx context.Context, bk *model.Book) error {
	pool, err := r.b.acquire()
	if err != nil {
		return err
	}
	bk.UpdatedAt = time.Now().UTC()
	tag, err := pool.Exec(ctx, `
		UPDATE books
		SET title=$1, author=$2, status=$3, rating=$4, notes=$5, updated_at=$6
		WHERE id=$7 AND owner_id=$8
	`, bk.Title, bk.Author, bk.Status, bk.Rating, bk.Notes, bk.UpdatedAt, bk.ID, bk.OwnerID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *books) Delete(ctx context.Context, ownerID, id string) error {
	pool, err := r.b.acquire()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx, `DELETE FROM books WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *books) SetCover(ctx context.Context, ownerID, id, key string) (*model.Book, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return nil, err
	}
	return scanBook(pool.QueryRow(ctx, `
		UPDATE books SET cover_key=$1, updated_at=$2
		WHERE id=$3 AND owner_id=$4
		RETURNING `+bookColumns, key, time.Now().UTC(), id, ownerID))
}

func (r *books) Count(ctx context.Context) (int64, error) {
	pool, err := r.b.acquire()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}
