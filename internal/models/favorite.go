package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FavoriteMeal is a reusable nutrition record the owner can log again as a
// new meal without re-running analysis.
type FavoriteMeal struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Calories  float64   `gorm:"type:float" json:"calories"`
	Protein   float64   `gorm:"type:float" json:"protein"`
	Fat       float64   `gorm:"type:float" json:"fat"`
	Carbs     float64   `gorm:"type:float" json:"carbs"`
	Fiber     float64   `gorm:"type:float" json:"fiber"`
}

func (FavoriteMeal) TableName() string {
	return "favorite_meals"
}

func (f *FavoriteMeal) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
