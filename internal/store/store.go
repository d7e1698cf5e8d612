// Package store declares the persistence contracts shared by the mongo,
// postgres and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key (user email) is taken.
	ErrDuplicate = errors.New("already exists")
)

// Users persists accounts. Email is unique; users are never deleted.
type Users interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// Books persists shelf entries. Every per-book call is scoped by owner so a
// foreign id behaves exactly like a missing one.
type Books interface {
	Create(ctx context.Context, b *model.Book) error
	Get(ctx context.Context, ownerID, id string) (*model.Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, ownerID, id string) error
	SetCover(ctx context.Context, ownerID, id, key string) (*model.Book, error)
	Count(ctx context.Context) (int64, error)
}

// Backend is a database driver that also hands out the typed stores built on
// its connection.
type Backend interface {
	database.Driver
	Users() Users
	Books() Books
}

// NewID returns a fresh identifier for a user or book.
func NewID() string {
	return uuid.NewString()
}

// PrepareUser fills the identity and timestamps of a user about to be created.
func PrepareUser(u *model.User) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = NewID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
}

// PrepareBook fills the identity and timestamps of a book about to be created.
func PrepareBook(b *model.Book) {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = NewID()
	}
	b.CreatedAt = now
	b.UpdatedAt = now
}
