//go:build mage

package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
)

// MigrateUp runs all pending migrations
func MigrateUp() error {
	return vendoralerts("migrate", "up")
}

// MigrateDown rolls back the last migration
func MigrateDown() error {
	return vendoralerts("migrate", "down")
}

// MigrateVersion prints the current schema version
func MigrateVersion() error {
	return vendoralerts("migrate", "version")
}

// MigrateCreate creates a new pair of migration files for both dialects
func MigrateCreate(name string) error {
	if name == "" {
		return fmt.Errorf("migration name is required")
	}

	for _, dir := range []string{"internal/migrations/postgres", "internal/migrations/sqlite"} {
		cmd := exec.Command("migrate", "create", "-ext", "sql", "-dir", dir, "-seq", name)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return err
		}
	}
	return nil
}

// Serve runs the API and workers
func Serve() error {
	return vendoralerts("serve")
}

// Test runs the test suite
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Helper functions

func vendoralerts(args ...string) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cmd := exec.Command("go", append([]string{"run", "./cmd"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
