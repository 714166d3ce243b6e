package model

import "time"

// User represents a registered account. Users own items.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor is the identity behind a request. A nil *Actor is an anonymous requester.
type Actor struct {
	UserID   int64
	Username string
}

// IsAuthenticated reports whether the actor is a recognized identity.
func (a *Actor) IsAuthenticated() bool {
	return a != nil && a.UserID > 0
}
