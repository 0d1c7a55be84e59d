package athletes

import "time"

// Athlete is the registration profile attached to a user account.
type Athlete struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	UserID      string    `gorm:"column:user_id;size:36;not null;index" json:"userId"`
	FullName    string    `gorm:"column:full_name;size:100;not null" json:"fullName"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null" json:"dateOfBirth"`
	CPF         string    `gorm:"column:cpf;size:20;not null" json:"cpf"`
	Phone       string    `gorm:"column:phone;size:20;not null" json:"phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Athlete) TableName() string {
	return "athletes"
}
