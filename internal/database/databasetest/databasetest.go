// Package databasetest opens a scratch database for package tests
package databasetest

import (
	"os"
	"testing"

	"github.com/alexbotov/flickrapi/internal/database"
)

// Open connects to the database named by FLICKR_TEST_DB_DSN, migrates it
// and empties its tables. Tests are skipped when the variable is unset.
func Open(t testing.TB) *database.DB {
	t.Helper()

	dsn := os.Getenv("FLICKR_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("FLICKR_TEST_DB_DSN not set")
	}
	db, err := database.New("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	if err := db.CleanData(); err != nil {
		t.Fatalf("Failed to clean data: %v", err)
	}
	t.Cleanup(func() {
		db.CleanData()
		db.Close()
	})
	return db
}
