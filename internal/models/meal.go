package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// JSONBlob stores an opaque JSON document. The AI context returned by the
// analysis provider is round-tripped through this without interpretation.
type JSONBlob json.RawMessage

func (b JSONBlob) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return []byte(b), nil
}

func (b *JSONBlob) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*b = append((*b)[:0], v...)
	case string:
		*b = JSONBlob(v)
	}
	return nil
}

func (b JSONBlob) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *JSONBlob) UnmarshalJSON(data []byte) error {
	*b = append((*b)[:0], data...)
	return nil
}

type Meal struct {
	ID              uuid.UUID        `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
	UserID          uuid.UUID        `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name            string           `gorm:"size:255;not null" json:"name"`
	Calories        float64          `gorm:"type:float" json:"calories"`
	Protein         float64          `gorm:"type:float" json:"protein"`
	Fat             float64          `gorm:"type:float" json:"fat"`
	Carbs           float64          `gorm:"type:float" json:"carbs"`
	Fiber           float64          `gorm:"type:float" json:"fiber"`
	AISuggestion    string           `gorm:"type:text" json:"ai_suggestion"`
	OriginalPrompt  string           `gorm:"type:text" json:"original_prompt"`
	IsImageAnalyzed bool             `gorm:"default:false" json:"is_image_analyzed"`
	AIContext       JSONBlob         `gorm:"type:jsonb" json:"ai_context"`
	PhotoKeys       JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"photo_keys"`
	ConsumedAt      time.Time        `gorm:"not null;index" json:"consumed_at"`
}

func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
