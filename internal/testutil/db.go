// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/models"
)

// NewDB returns a migrated in-memory database. The pool is pinned to a single
// connection because every new connection to :memory: is a fresh database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}
	return db
}

// Asset builds an asset with a fresh id in the given project.
func Asset(project uuid.UUID, name string, licenses, categories []string) models.Asset {
	return models.Asset{
		AssetID:                uuid.New(),
		ProjectID:              project,
		Name:                   name,
		Licenses:               models.NewStringSet(licenses...),
		LicenseCategories:      models.NewStringSet(categories...),
		OpenSourceMatchPercent: 50,
		CreatedAt:              time.Now().UTC().Truncate(time.Millisecond),
	}
}

// InsertAssets writes assets and all of their lookup rows.
func InsertAssets(t *testing.T, db *gorm.DB, assets ...models.Asset) {
	t.Helper()

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		return database.InsertAssets(tx, assets)
	})
	if err != nil {
		t.Fatalf("failed to insert assets: %v", err)
	}
}

// InsertUser writes a user and its organization row, if any.
func InsertUser(t *testing.T, db *gorm.DB, email, organization string) models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: "hash",
		Organization: organization,
	}
	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		return database.UpsertUser(tx, user)
	})
	if err != nil {
		t.Fatalf("failed to insert user %s: %v", email, err)
	}
	return user
}

// Emails returns n addresses whose lexical order matches their index.
func Emails(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%03d@example.com", i)
	}
	return out
}
