// Package models - user.go defines the User model for dashboard accounts with email,
// display name, and bcrypt password hash, plus the Profile directory record.
package models

import "time"

// User represents an account that can sign in to the dashboard
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the directory record that links a user into a team under the
// older schema generation (users -> profiles -> team_members -> teams).
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FullName  *string   `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
