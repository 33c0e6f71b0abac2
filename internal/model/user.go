// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered employee account.
//
// Email is the login name and is unique exactly as stored (no case folding).
// Manager is an optional email address that receives a copy of every sick
// leave notification. PasswordHash is a bcrypt hash and never leaves the
// server: the `json:"-"` tag keeps it out of every response.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Manager      string    `json:"manager"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
