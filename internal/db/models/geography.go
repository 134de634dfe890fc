// Package models - geography.go defines the State, City, and Courthouse reference
// models used by the registry search facets.
package models

// State is a top-level geographic facet
type State struct {
	ID   int
	Name string
}

// City belongs to a state; it mediates the state -> courthouse lookup
type City struct {
	ID      int
	Name    string
	StateID int
}

// Courthouse is the jurisdiction a shared trial is filed in
type Courthouse struct {
	ID     int
	Name   string
	CityID int
}
