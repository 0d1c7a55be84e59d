package database

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/jisc/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesEmailsAndClearsDeadTokens(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&users.User{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	expiredToken := "expired-token"
	expiredAt := time.Now().Add(-time.Hour).UTC()
	legacy := users.User{
		ID:                 "user-legacy",
		Name:               "Ada",
		Email:              " Ada@Example.COM ",
		PendingMagicToken:  &expiredToken,
		PendingMagicExpiry: &expiredAt,
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert legacy user: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored users.User
	if err := database.Where("id = ?", legacy.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload user: %v", err)
	}
	if stored.Email != "ada@example.com" {
		testContext.Fatalf("expected normalized email, got %q", stored.Email)
	}
	if stored.PendingMagicToken != nil || stored.PendingMagicExpiry != nil {
		testContext.Fatalf("expected expired pending token cleared")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeUserEmails).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	// Re-running is a no-op once the records exist.
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected reapply to be a no-op: %v", err)
	}
}

func TestOpenSQLiteInitializesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "app.db")

	db, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	for _, table := range []string{"users", "athletes", "db_migrations"} {
		if !db.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %q to exist", table)
		}
	}
}
