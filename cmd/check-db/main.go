// Package main is a diagnostic tool for testing database connectivity and
// inspecting live trial data. It connects to the database, queries the
// shared_trials and org_trials tables, and prints a summary to stdout. The
// binary exits with a non-zero code on any failure so it can be embedded in
// health checks or CI/CD pipeline steps to gate deployments on a reachable,
// populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "lexxi"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=lexxi password=%s dbname=lexxi sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check shared trials
	fmt.Println("=== SHARED TRIALS ===")
	rows, err := db.Query("SELECT id, case_number, courthouse_id, status FROM shared_trials")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, caseNumber, status string
		var courthouseID int
		if err := rows.Scan(&id, &caseNumber, &courthouseID, &status); err != nil {
			log.Printf("Warning: failed to scan trial row: %v", err)
			continue
		}
		fmt.Printf("Trial: %s (courthouse %d, status %s, ID: %s)\n", caseNumber, courthouseID, status, id)
	}

	// Check team subscriptions
	fmt.Println("\n=== ORG TRIALS ===")
	rows2, err := db.Query("SELECT id, team_id, shared_trial_id, org_corporation FROM org_trials")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var id, teamID, trialID string
		var corporation *string
		if err := rows2.Scan(&id, &teamID, &trialID, &corporation); err != nil {
			log.Printf("Warning: failed to scan org trial row: %v", err)
			continue
		}
		hasCorp := "NO"
		if corporation != nil && *corporation != "" {
			hasCorp = fmt.Sprintf("YES (%s)", *corporation)
		}
		fmt.Printf("OrgTrial: team %s -> trial %s (ID: %s) - corporation: %s\n", teamID, trialID, id, hasCorp)
		count++
	}

	if count == 0 {
		fmt.Println("No subscriptions found!")
	}
}
