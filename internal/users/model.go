package users

import (
	"strings"
	"time"
)

// Identity providers recorded on a user. A user created through a magic link
// carries ProviderMagic until an OAuth sign-in backfills a real provider link.
const (
	ProviderGoogle = "google"
	ProviderMagic  = "magic"
)

// User is the canonical identity record. Email is the sole uniqueness key;
// every authentication path joins on it.
type User struct {
	ID                 string     `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name               string     `gorm:"column:name;size:100;not null" json:"name"`
	Email              string     `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Provider           string     `gorm:"column:provider;size:32" json:"provider,omitempty"`
	ProviderSubjectID  string     `gorm:"column:provider_subject_id;size:190" json:"-"`
	PendingMagicToken  *string    `gorm:"column:pending_magic_token;size:1024" json:"-"`
	PendingMagicExpiry *time.Time `gorm:"column:pending_magic_expires_at" json:"-"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// NormalizeEmail lowercases and trims an address so that lookups and
// uniqueness checks agree regardless of how the caller typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
