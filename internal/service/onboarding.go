package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// OnboardingRequest carries everything collected by the first-run flow.
type OnboardingRequest struct {
	Gender        string  `json:"gender" binding:"required,oneof=male female"`
	HeightCm      float64 `json:"height_cm" binding:"required,gt=0"`
	BirthYear     int     `json:"birth_year" binding:"required,gt=1900"`
	ActivityLevel string  `json:"activity_level" binding:"required"`
	WeightKg      float64 `json:"weight_kg" binding:"required,gt=0"`
}

// OnboardingResult reports what the flow created.
type OnboardingResult struct {
	Profile     *models.UserProfile `json:"profile"`
	Goal        *models.Goal        `json:"goal"`
	Measurement *models.Measurement `json:"measurement"`
	TDEE        TDEEResult          `json:"tdee"`
}

// OnboardingService writes the profile, the initial goal derived from a TDEE
// calculation, and the first weight measurement as one transaction, so a
// failed attempt leaves nothing behind and can simply be retried.
type OnboardingService struct {
	db   *gorm.DB
	tdee *TDEEService
}

func NewOnboardingService(db *gorm.DB, tdee *TDEEService) *OnboardingService {
	return &OnboardingService{db: db, tdee: tdee}
}

// Complete runs the full onboarding write for one user. Calling it again
// replaces the previous profile and goal values instead of duplicating rows.
func (s *OnboardingService) Complete(ctx context.Context, userID uuid.UUID, req OnboardingRequest) (*OnboardingResult, error) {
	age := time.Now().Year() - req.BirthYear
	if age <= 0 || age > 130 {
		return nil, fmt.Errorf("%w: implausible birth year", ErrInvalidInput)
	}

	// The provider call happens before the transaction opens; the calculator
	// degrades to its deterministic split on any provider failure.
	tdeeResult := s.tdee.Calculate(ctx, TDEERequest{
		Gender:        req.Gender,
		WeightKg:      req.WeightKg,
		HeightCm:      req.HeightCm,
		Age:           age,
		ActivityLevel: req.ActivityLevel,
	})

	var result OnboardingResult
	result.TDEE = tdeeResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := NewProfileService(tx)
		profile, err := profiles.UpdateProfile(ctx, userID, map[string]interface{}{
			"gender":         req.Gender,
			"height_cm":      req.HeightCm,
			"birth_year":     req.BirthYear,
			"activity_level": req.ActivityLevel,
		})
		if err != nil {
			return fmt.Errorf("failed to write profile: %w", err)
		}
		result.Profile = profile

		goal, err := NewGoalService(tx).UpsertGoal(ctx, userID, tdeeResult.SuggestedTargets)
		if err != nil {
			return fmt.Errorf("failed to write goal: %w", err)
		}
		result.Goal = goal

		measurement := &models.Measurement{
			UserID:     userID,
			WeightKg:   req.WeightKg,
			MeasuredAt: time.Now(),
		}
		if err := tx.Create(measurement).Error; err != nil {
			return fmt.Errorf("failed to write measurement: %w", err)
		}
		result.Measurement = measurement

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
