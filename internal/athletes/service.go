package athletes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAthleteNotFound indicates that no athlete matches the requested id.
var ErrAthleteNotFound = errors.New("athletes: athlete not found")

// Service persists athlete registration records.
type Service struct {
	db *gorm.DB
}

// NewService wraps the provided database handle.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("athletes: database connection required")
	}
	return &Service{db: db}, nil
}

// Create inserts a new athlete, assigning an id when the caller left it empty.
func (s *Service) Create(ctx context.Context, athlete *Athlete) error {
	if athlete.ID == "" {
		athlete.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(athlete).Error
}

// List returns every athlete record.
func (s *Service) List(ctx context.Context) ([]Athlete, error) {
	var records []Athlete
	if err := s.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the athlete with the given identifier.
func (s *Service) Get(ctx context.Context, id string) (*Athlete, error) {
	var athlete Athlete
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&athlete).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &athlete, nil
}

// Update applies the provided column updates and returns the fresh record.
func (s *Service) Update(ctx context.Context, id string, updates map[string]interface{}) (*Athlete, error) {
	result := s.db.WithContext(ctx).
		Model(&Athlete{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAthleteNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the athlete and returns the record as it stood before removal.
func (s *Service) Delete(ctx context.Context, id string) (*Athlete, error) {
	athlete, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Athlete{}).Error; err != nil {
		return nil, err
	}
	return athlete, nil
}
