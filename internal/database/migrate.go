package database

import (
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// AutoMigrate creates or updates the schema for every model the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Meal{},
		&models.FavoriteMeal{},
		&models.Goal{},
		&models.Measurement{},
	)
}
