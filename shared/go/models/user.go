package models

import "time"

// User is an account that owns playlists and videos.
type User struct {
	ID           int64     `json:"-" db:"id"`
	UUID         string    `json:"uuid" db:"uuid"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Profile is the public view of a user.
type Profile struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal identifies the caller of an operation. A nil *Principal is anonymous.
type Principal struct {
	UserID int64
	UUID   string
	Email  string
}

// Anonymous reports whether p carries no identity.
func (p *Principal) Anonymous() bool {
	return p == nil || p.UserID == 0
}

// Is reports whether p is the user with the given id.
func (p *Principal) Is(userID int64) bool {
	return !p.Anonymous() && p.UserID == userID
}
