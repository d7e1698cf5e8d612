package model

import "time"

// BookStatus describes where a reader is with a book.
type BookStatus string

const (
	StatusWantToRead BookStatus = "want_to_read"
	StatusReading    BookStatus = "reading"
	StatusRead       BookStatus = "read"
)

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusReading, StatusRead:
		return true
	}
	return false
}

// MaxRating is the top of the 0-5 rating scale; 0 means unrated.
const MaxRating = 5

// Book is one entry on a user's shelf.
type Book struct {
	ID        string     `json:"id" bson:"_id"`
	OwnerID   string     `json:"ownerId" bson:"owner_id"`
	Title     string     `json:"title" bson:"title"`
	Author    string     `json:"author" bson:"author"`
	Status    BookStatus `json:"status" bson:"status"`
	Rating    int        `json:"rating" bson:"rating"`
	Notes     string     `json:"notes,omitempty" bson:"notes,omitempty"`
	CoverKey  string     `json:"coverKey,omitempty" bson:"cover_key,omitempty"`
	CoverURL  string     `json:"coverUrl,omitempty" bson:"-"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updated_at"`
}
