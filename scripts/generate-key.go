// Package main is a development utility for generating a JWT signing secret
// suitable for LXI_JWT_SECRET. It prints the secret alongside an export line
// and a config snippet so developers can drop it straight into their shell or
// config file. Generate a fresh secret per environment; rotating it signs out
// every active session.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	// 48 random bytes comfortably clears the 32-character minimum the
	// server enforces at startup.
	randomBytes := make([]byte, 48)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}

	secret := base64.RawURLEncoding.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("JWT Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSecret: %s\n", secret)
	fmt.Println("\nShell:")
	fmt.Printf("  export LXI_JWT_SECRET=%s\n", secret)
	fmt.Println("\nconfig.yaml:")
	fmt.Println("  auth:")
	fmt.Printf("    jwt_secret: %s\n", secret)
	fmt.Println("\n==========================================================")
}
