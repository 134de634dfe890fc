// Package models - shared_trial.go defines the SharedTrial registry model, the
// TrialEntity party rows, and the party-role partitioning helpers.
package models

import (
	"strings"
	"time"
)

// Trial entity roles. Role values outside these two exist in source data and
// are stored but not interpreted.
const (
	RolePlaintiff = 1
	RoleDefendant = 4
)

// SharedTrial represents a court case in the shared registry, visible to
// every team. Plaintiff and Defendant are denormalized party names used only
// when the trial has no trial_entities rows for that side.
type SharedTrial struct {
	ID          string
	CaseNumber  string
	CourthouseID int
	Status      string // activo | concluido
	Plaintiff   *string
	Defendant   *string
	CreatedAt   time.Time
	// Joined fields (not stored in shared_trials)
	CourthouseName *string
}

// TrialEntity is a named party to a trial
type TrialEntity struct {
	ID            string
	SharedTrialID string
	Name          string
	Role          int
}

// PartyNames partitions entities by role and returns the display strings for
// the plaintiff and defendant sides. Each side is the comma-joined entity
// names; a side with no entities falls back to the given denormalized value,
// or "" when that is nil.
func PartyNames(entities []TrialEntity, plaintiffFallback, defendantFallback *string) (plaintiff, defendant string) {
	var p, d []string
	for _, e := range entities {
		switch e.Role {
		case RolePlaintiff:
			p = append(p, e.Name)
		case RoleDefendant:
			d = append(d, e.Name)
		}
	}
	plaintiff = joinOrFallback(p, plaintiffFallback)
	defendant = joinOrFallback(d, defendantFallback)
	return plaintiff, defendant
}

func joinOrFallback(names []string, fallback *string) string {
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	if fallback != nil {
		return *fallback
	}
	return ""
}
