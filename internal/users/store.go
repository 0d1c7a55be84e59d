package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrUserNotFound indicates that no user matches the requested id or email.
var ErrUserNotFound = errors.New("users: user not found")

// Store persists canonical user records.
type Store struct {
	db *gorm.DB
}

// NewStore wraps the provided database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	return &Store{db: db}, nil
}

// FindByEmail returns the user owning the normalized email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given identifier.
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every user record.
func (s *Store) List(ctx context.Context) ([]User, error) {
	var records []User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Insert creates the user, assigning an id when the caller left it empty.
func (s *Store) Insert(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)
	return s.db.WithContext(ctx).Create(user).Error
}

// Update applies the provided column updates and returns the fresh record.
func (s *Store) Update(ctx context.Context, id string, updates map[string]interface{}) (*User, error) {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.FindByID(ctx, id)
}

// Delete removes the user and returns the record as it stood before removal.
func (s *Store) Delete(ctx context.Context, id string) (*User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&User{}).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetPendingMagicToken stores a freshly issued magic-link token on the user,
// superseding any token that was still outstanding.
func (s *Store) SetPendingMagicToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_magic_token":      token,
			"pending_magic_expires_at": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumePendingMagicToken clears the pending token only if the stored value
// still equals the presented one. The conditional update is what guarantees a
// token redeems at most once even under concurrent redemption attempts: the
// second caller observes zero affected rows.
func (s *Store) ConsumePendingMagicToken(ctx context.Context, id, token string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND pending_magic_token = ?", id, token).
		Updates(map[string]interface{}{
			"pending_magic_token":      nil,
			"pending_magic_expires_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
