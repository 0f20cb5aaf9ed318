package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal is the active calorie/macro target set for a user. One row per user,
// upserted in place.
type Goal struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	Calories  float64   `gorm:"type:float" json:"calories"`
	Protein   float64   `gorm:"type:float" json:"protein"`
	Fat       float64   `gorm:"type:float" json:"fat"`
	Carbs     float64   `gorm:"type:float" json:"carbs"`
	Fiber     float64   `gorm:"type:float" json:"fiber"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
