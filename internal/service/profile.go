package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// ProfileService manages the per-user profile row.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile returns the user's profile, or nil when none exists yet.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies field updates, creating the profile row on first use.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) (*models.UserProfile, error) {
	existing, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		profile := models.UserProfile{UserID: userID}
		applyProfileUpdates(&profile, updates)
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}

	if err := s.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func applyProfileUpdates(profile *models.UserProfile, updates map[string]interface{}) {
	if v, ok := updates["gender"].(string); ok {
		profile.Gender = v
	}
	if v, ok := updates["height_cm"].(float64); ok {
		profile.HeightCm = v
	}
	if v, ok := updates["birth_year"].(int); ok {
		profile.BirthYear = v
	}
	if v, ok := updates["activity_level"].(string); ok {
		profile.ActivityLevel = v
	}
}
