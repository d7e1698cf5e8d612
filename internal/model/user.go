// Package model contains simple struct definitions shared across packages.
package model

import "time"

// User is an account. PasswordHash is a bcrypt hash and never leaves the
// server: the "-" tag keeps it out of every JSON response.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	IsAdmin      bool      `json:"isAdmin" bson:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
