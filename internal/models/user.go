package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserProfile holds the body-composition inputs the TDEE calculator and the
// onboarding flow read from.
type UserProfile struct {
	ID            uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	Gender        string         `gorm:"size:10" json:"gender"`
	HeightCm      float64        `json:"height_cm"`
	BirthYear     int            `json:"birth_year"`
	ActivityLevel string         `gorm:"size:30;default:'sedentary'" json:"activity_level"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
