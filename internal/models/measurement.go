package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Measurement is a point-in-time body measurement.
type Measurement struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	WeightKg   float64   `gorm:"type:float;not null" json:"weight_kg"`
	BodyFatPct *float64  `gorm:"type:float" json:"body_fat_pct,omitempty"`
	WaistCm    *float64  `gorm:"type:float" json:"waist_cm,omitempty"`
	MeasuredAt time.Time `gorm:"not null;index" json:"measured_at"`
}

func (m *Measurement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
