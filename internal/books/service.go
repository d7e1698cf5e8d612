// Package books implements the per-user reading shelf.
package books

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store"
	"github.com/dharsanguruparan/booktracker/internal/uploads"
)

const (
	maxTitleLen = 200
	maxNotesLen = 5000
)

// Input is the writable part of a book, used by create and update.
type Input struct {
	Title  string           `json:"title"`
	Author string           `json:"author"`
	Status model.BookStatus `json:"status"`
	Rating int              `json:"rating"`
	Notes  string           `json:"notes"`
}

func (in *Input) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if in.Status == "" {
		in.Status = model.StatusWantToRead
	}

	var v apperr.Validation
	v.Check(in.Title != "", "title", "Title is required")
	v.Check(utf8.RuneCountInString(in.Title) <= maxTitleLen, "title",
		fmt.Sprintf("Title must be at most %d characters", maxTitleLen))
	v.Check(in.Status.Valid(), "status", "Status must be one of want_to_read, reading, read")
	v.Check(in.Rating >= 0 && in.Rating <= model.MaxRating, "rating",
		fmt.Sprintf("Rating must be between 0 and %d", model.MaxRating))
	v.Check(utf8.RuneCountInString(in.Notes) <= maxNotesLen, "notes",
		fmt.Sprintf("Notes must be at most %d characters", maxNotesLen))
	return v.Err()
}

type Service struct {
	repo   store.Books
	covers uploads.Store
	log    zerolog.Logger
}

func NewService(repo store.Books, covers uploads.Store, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		covers: covers,
		log:    log.With().Str("component", "books").Logger(),
	}
}

func (s *Service) List(ctx context.Context, ownerID string) ([]model.Book, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if list == nil {
		list = []model.Book{}
	}
	for i := range list {
		s.fillCoverURL(ctx, &list[i])
	}
	return list, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*model.Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	b := &model.Book{
		OwnerID: ownerID,
		Title:   in.Title,
		Author:  in.Author,
		Status:  in.Status,
		Rating:  in.Rating,
		Notes:   in.Notes,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*model.Book, error) {
	b, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	s.fillCoverURL(ctx, b)
	return b, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (*model.Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	b := &model.Book{
		ID:      id,
		OwnerID: ownerID,
		Title:   in.Title,
		Author:  in.Author,
		Status:  in.Status,
		Rating:  in.Rating,
		Notes:   in.Notes,
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, notFound(err)
	}
	return s.Get(ctx, ownerID, id)
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return notFound(err)
	}
	return nil
}

// SetCover stores the image for a book the caller owns and records its key.
// The caller has already sniffed contentType.
func (s *Service) SetCover(ctx context.Context, ownerID, id string, r io.Reader, size int64, contentType string) (*model.Book, error) {
	ext, ok := uploads.CoverExtension(contentType)
	if !ok {
		return nil, apperr.BadRequest("Cover must be a PNG, JPEG, GIF or WebP image")
	}
	if _, err := s.repo.Get(ctx, ownerID, id); err != nil {
		return nil, notFound(err)
	}
	key := fmt.Sprintf("covers/%s-%s%s", id, store.NewID(), ext)
	if err := s.covers.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("store cover: %w", err)
	}
	b, err := s.repo.SetCover(ctx, ownerID, id, key)
	if err != nil {
		return nil, notFound(err)
	}
	s.fillCoverURL(ctx, b)
	return b, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) fillCoverURL(ctx context.Context, b *model.Book) {
	if b.CoverKey == "" {
		return
	}
	u, err := s.covers.URL(ctx, b.CoverKey)
	if err != nil {
		s.log.Warn().Err(err).Str("book", b.ID).Msg("resolve cover url")
		return
	}
	b.CoverURL = u
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Book not found")
	}
	return err
}
