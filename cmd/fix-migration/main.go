// Package main clears a stuck migration flag. When the server is
// killed mid-migration, golang-migrate leaves schema_migrations marked
// dirty and every later startup fails with "Dirty database version".
// After verifying by hand that the schema matches the recorded version,
// run this to clear the flag so the runner can proceed.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func dsnFromEnv() string {
	host := os.Getenv("DATABASE_HOST")
	if host == "" {
		host = "localhost"
	}
	password := os.Getenv("DATABASE_PASSWORD")
	if password == "" {
		password = "lexxi"
	}
	return fmt.Sprintf("host=%s port=5432 user=lexxi password=%s dbname=lexxi sslmode=disable", host, password)
}

func migrationState(db *sql.DB) (version int, dirty bool, err error) {
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	return
}

func main() {
	db, err := sql.Open("postgres", dsnFromEnv())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	version, dirty, err := migrationState(db)
	if err != nil {
		log.Fatalf("Failed to read migration state: %v", err)
	}
	log.Printf("Migration state: version=%d dirty=%v", version, dirty)

	if !dirty {
		log.Println("Nothing to fix, migration state is clean")
		return
	}

	if _, err := db.Exec("UPDATE schema_migrations SET dirty = false"); err != nil {
		log.Fatalf("Failed to clear dirty flag: %v", err)
	}

	version, dirty, err = migrationState(db)
	if err != nil {
		log.Fatalf("Failed to re-read migration state: %v", err)
	}
	log.Printf("Cleared dirty flag, migration state now: version=%d dirty=%v", version, dirty)
}
