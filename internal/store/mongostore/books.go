package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

type books struct {
	b *Backend
}

func ownedFilter(ownerID, id string) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID}
}

func (s *books) Create(ctx context.Context, book *model.Book) error {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return err
	}
	store.PrepareBook(book)
	if _, err := coll.InsertOne(ctx, book); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *books) Get(ctx context.Context, ownerID, id string) (*model.Book, error) {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return nil, err
	}
	var book model.Book
	if err := coll.FindOne(ctx, ownedFilter(ownerID, id)).Decode(&book); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

func (s *books) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	out := make([]model.Book, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return out, nil
}

func (s *books) Update(ctx context.Context, book *model.Book) error {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return err
	}
	book.UpdatedAt = time.Now().UTC()
	res, err := coll.UpdateOne(ctx, ownedFilter(book.OwnerID, book.ID), bson.M{"$set": bson.M{
		"title":      book.Title,
		"author":     book.Author,
		"status":     book.Status,
		"rating":     book.Rating,
		"notes":      book.Notes,
		"updated_at": book.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *books) Delete(ctx context.Context, ownerID, id string) error {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, ownedFilter(ownerID, id))
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *books) SetCover(ctx context.Context, ownerID, id, key string) (*model.Book, error) {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"cover_key": key, "updated_at": time.Now().UTC()}}
	var book model.Book
	err = coll.FindOneAndUpdate(ctx, ownedFilter(ownerID, id), update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("set cover: %w", err)
	}
	return &book, nil
}

func (s *books) Count(ctx context.Context) (int64, error) {
	coll, err := s.b.collection(booksCollection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}
