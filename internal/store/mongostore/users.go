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

type users struct {
	b *Backend
}

func (u *users) Create(ctx context.Context, user *model.User) error {
	coll, err := u.b.collection(usersCollection)
	if err != nil {
		return err
	}
	store.PrepareUser(user)
	if _, err := coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u *users) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	coll, err := u.b.collection(usersCollection)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (u *users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.findOne(ctx, bson.M{"email": email})
}

func (u *users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *users) List(ctx context.Context) ([]model.User, error) {
	coll, err := u.b.collection(usersCollection)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (u *users) SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.User, error) {
	coll, err := u.b.collection(usersCollection)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"is_admin": isAdmin, "updated_at": time.Now().UTC()}}
	var user model.User
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (u *users) Count(ctx context.Context) (int64, error) {
	coll, err := u.b.collection(usersCollection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
