// Package models - publication.go defines the Publication model for court
// publications attached to a shared trial.
package models

import "time"

// Publication represents a court publication (acuerdo) for a shared trial.
// DocumentPath, when set, is the storage key of the uploaded source document.
type Publication struct {
	ID              string
	SharedTrialID   string
	PublicationDate *time.Time
	AgreementDate   *time.Time
	Summary         *string
	Status          *string
	DocumentPath    *string
	CreatedAt       time.Time
}
