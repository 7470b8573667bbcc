// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Users sign up with email and password. The email doubles as the owner
// identity on generations — it's what the projects endpoints filter and
// authorize by. The UNIQUE constraint on email in the DB ensures one
// account per address.
//
// WHY PasswordHash `json:"-"`?
// The bcrypt hash must never leave the server, not even to the account's
// own owner. The `-` tag tells encoding/json to skip the field entirely,
// so no handler can leak it by accident.
type User struct {
	ID           string    `json:"id"        db:"id"`
	FirstName    string    `json:"firstname" db:"first_name"`
	LastName     string    `json:"lastname"  db:"last_name"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
