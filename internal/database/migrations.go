package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeUserEmails     = "2026-07-14_normalize_user_emails"
	migrationClearExpiredMagicTokens = "2026-08-02_clear_expired_magic_tokens"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeUserEmails, apply: normalizeUserEmails},
		{name: migrationClearExpiredMagicTokens, apply: clearExpiredMagicTokens},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeUserEmails repairs records written before email normalization was
// enforced at the store boundary. Email is the identity join key, so a
// mixed-case duplicate would split one person across two accounts.
func normalizeUserEmails(db *gorm.DB) error {
	return db.Exec("UPDATE users SET email = lower(trim(email)) WHERE email <> lower(trim(email));").Error
}

// clearExpiredMagicTokens drops dead pending tokens left behind by users who
// never redeemed their link. Expired tokens are already unredeemable; this
// just keeps the columns honest.
func clearExpiredMagicTokens(db *gorm.DB) error {
	now := time.Now().UTC()
	return db.Exec(
		"UPDATE users SET pending_magic_token = NULL, pending_magic_expires_at = NULL WHERE pending_magic_expires_at IS NOT NULL AND pending_magic_expires_at < ?;",
		now,
	).Error
}
