// Package main is a utility for generating bcrypt hashes of user passwords.
// The backend stores only bcrypt hashes of passwords, never the raw values,
// so this tool is used when manually seeding or resetting user records in the
// database without running the full server. Running it locally produces a hash
// that can be inserted directly into the users table.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/lexxi/lexxi/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <password>", os.Args[0])
	}
	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
