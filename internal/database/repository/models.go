package repository

import "time"

// User represents a sandbox user row.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAttribute represents one attribute row.
type UserAttribute struct {
	UserID    string
	Key       string
	Value     string
	Position  int
	UpdatedAt time.Time
}

// Session represents a sign-in.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	RevokedAt *time.Time
}
