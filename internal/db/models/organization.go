// Package models - organization.go defines the Organization and Team models and the
// TeamContext pair the directory resolver produces for a signed-in user.
package models

import "time"

// Organization represents a law firm or legal department tenant
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`         // URL-safe name
	DisplayName string    `json:"display_name"` // Human-readable display name
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Team represents a working group inside an organization. Under the newer
// schema generation the owning user is recorded directly on UserID.
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	OrganizationID string    `json:"organization_id"`
	UserID         *string   `json:"user_id"` // direct-schema owner link, nil under three_hop
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TeamMember links a profile to a team under the three_hop schema generation
type TeamMember struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMemberInfo is a team member joined with the backing user record, as
// returned by the admin membership listing.
type TeamMemberInfo struct {
	ProfileID string    `json:"profile_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamContext is the resolved (team, organization) pair every team-scoped
// operation runs under. It is derived per request, never cached across users.
type TeamContext struct {
	TeamID         string
	OrganizationID string
}
