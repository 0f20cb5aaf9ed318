package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// GoalService manages the single active goal row per user.
type GoalService struct {
	db *gorm.DB
}

func NewGoalService(db *gorm.DB) *GoalService {
	return &GoalService{db: db}
}

// GetGoal returns the user's active goal, or nil when none is set.
func (s *GoalService) GetGoal(ctx context.Context, userID uuid.UUID) (*models.Goal, error) {
	var goal models.Goal
	err := s.db.WithContext(ctx).First(&goal, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// UpsertGoal replaces the user's targets, creating the row on first use.
func (s *GoalService) UpsertGoal(ctx context.Context, userID uuid.UUID, targets MacroTargets) (*models.Goal, error) {
	existing, err := s.GetGoal(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		goal := models.Goal{
			UserID:   userID,
			Calories: targets.Calories,
			Protein:  targets.Protein,
			Fat:      targets.Fat,
			Carbs:    targets.Carbs,
			Fiber:    targets.Fiber,
		}
		if err := s.db.WithContext(ctx).Create(&goal).Error; err != nil {
			return nil, err
		}
		return &goal, nil
	}

	updates := map[string]interface{}{
		"calories": targets.Calories,
		"protein":  targets.Protein,
		"fat":      targets.Fat,
		"carbs":    targets.Carbs,
		"fiber":    targets.Fiber,
	}
	if err := s.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, userID)
}

// DeleteGoal clears the user's targets. Returns false when none existed.
func (s *GoalService) DeleteGoal(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Goal{}, "user_id = ?", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
