// Package memstore is the in-process backend selected by memory:// URIs. It is
// meant for development and tests; nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

// Backend holds users and books in maps guarded by one RWMutex, which suits
// the read-heavy request mix.
type Backend struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
	books   map[string]*model.Book
}

// New constructs an empty Backend.
func New() *Backend {
	return &Backend{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		books:   make(map[string]*model.Book),
	}
}

// Connect always succeeds; there is nothing to dial.
func (m *Backend) Connect(ctx context.Context, events database.Sink) error {
	return ctx.Err()
}

// Disconnect keeps the data so a test can inspect it after shutdown.
func (m *Backend) Disconnect(ctx context.Context) error {
	return nil
}

func (m *Backend) Users() store.Users { return (*users)(m) }
func (m *Backend) Books() store.Books { return (*books)(m) }

type users Backend

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *users) Create(ctx context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := emailKey(user.Email)
	if _, taken := u.byEmail[key]; taken {
		return store.ErrDuplicate
	}
	store.PrepareUser(user)
	rec := *user
	u.users[rec.ID] = &rec
	u.byEmail[key] = rec.ID
	return nil
}

func (u *users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byEmail[emailKey(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := *u.users[id]
	return &rec, nil
}

func (u *users) FindByID(ctx context.Context, id string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	rec, ok := u.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Returning a copy prevents callers from mutating internal state.
	copy := *rec
	return &copy, nil
}

func (u *users) List(ctx context.Context) ([]model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]model.User, 0, len(u.users))
	for _, rec := range u.users {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (u *users) SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec.IsAdmin = isAdmin
	rec.UpdatedAt = time.Now().UTC()
	copy := *rec
	return &copy, nil
}

func (u *users) Count(ctx context.Context) (int64, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return int64(len(u.users)), nil
}

type books Backend

func (b *books) Create(ctx context.Context, book *model.Book) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	store.PrepareBook(book)
	rec := *book
	b.books[rec.ID] = &rec
	return nil
}

// owned returns the stored record if it exists and belongs to ownerID. The
// caller must hold the lock.
func (b *books) owned(ownerID, id string) (*model.Book, bool) {
	rec, ok := b.books[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, false
	}
	return rec, true
}

func (b *books) Get(ctx context.Context, ownerID, id string) (*model.Book, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.owned(ownerID, id)
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *rec
	return &copy, nil
}

func (b *books) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Book, 0)
	for _, rec := range b.books {
		if rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (b *books) Update(ctx context.Context, book *model.Book) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.owned(book.OwnerID, book.ID)
	if !ok {
		return store.ErrNotFound
	}
	book.CreatedAt = rec.CreatedAt
	book.CoverKey = rec.CoverKey
	book.UpdatedAt = time.Now().UTC()
	updated := *book
	b.books[book.ID] = &updated
	return nil
}

func (b *books) Delete(ctx context.Context, ownerID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.owned(ownerID, id); !ok {
		return store.ErrNotFound
	}
	delete(b.books, id)
	return nil
}

func (b *books) SetCover(ctx context.Context, ownerID, id, key string) (*model.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.owned(ownerID, id)
	if !ok {
		return nil, store.ErrNotFound
	}
	rec.CoverKey = key
	rec.UpdatedAt = time.Now().UTC()
	copy := *rec
	return &copy, nil
}

func (b *books) Count(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.books)), nil
}
