// Package models - org_trial.go defines the OrgTrial model, a team's working copy
// of a registry trial carrying the annotation fields the inline editor writes,
// and the whitelist of fields that editor may touch.
package models

import "time"

// OrgTrial is one team's subscription to a shared trial plus the team-private
// annotation fields. Struct tags follow the sqlx convention because the
// subscription repository scans these rows with sqlx.
type OrgTrial struct {
	ID                string     `db:"id"`
	TeamID            string     `db:"team_id"`
	SharedTrialID     string     `db:"shared_trial_id"`
	CreatedBy         *string    `db:"created_by"`
	OrgCorporation    *string    `db:"org_corporation"`
	RiskFactor        *string    `db:"risk_factor"`
	Priority          *string    `db:"priority"`
	Outcome           *string    `db:"outcome"`
	ContingencyCost   *float64   `db:"contingency_cost"`
	StartDate         *time.Time `db:"start_date"`
	EndDate           *time.Time `db:"end_date"`
	Notes             *string    `db:"notes"`
	TrialStatus       string     `db:"trial_status"` // activo | concluido
	TrialTypeStage    *string    `db:"trial_type_stage"`
	CustomDescription *string    `db:"custom_description"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`

	// Joined fields from shared_trials / courthouses (not stored in org_trials)
	CaseNumber     *string `db:"case_number"`
	CourthouseID   *int    `db:"courthouse_id"`
	CourthouseName *string `db:"courthouse_name"`
	RegistryStatus *string `db:"registry_status"`
}

// editableOrgTrialFields is the whitelist of org_trials columns the inline
// editor may write. Anything else in a PATCH body is rejected before the
// value reaches SQL.
var editableOrgTrialFields = map[string]bool{
	"org_corporation":    true,
	"risk_factor":        true,
	"priority":           true,
	"outcome":            true,
	"contingency_cost":   true,
	"start_date":         true,
	"end_date":           true,
	"notes":              true,
	"trial_status":       true,
	"trial_type_stage":   true,
	"custom_description": true,
}

// IsEditableOrgTrialField reports whether the inline editor may write the
// named org_trials column.
func IsEditableOrgTrialField(field string) bool {
	return editableOrgTrialFields[field]
}

// EditableOrgTrialFields returns the whitelist as a slice, for error messages.
func EditableOrgTrialFields() []string {
	fields := make([]string, 0, len(editableOrgTrialFields))
	for f := range editableOrgTrialFields {
		fields = append(fields, f)
	}
	return fields
}
