package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// DaySummary aggregates every meal of one calendar day. Computed in
// application code, not in the store.
type DaySummary struct {
	Date      string  `json:"date"`
	MealCount int     `json:"meal_count"`
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Fat       float64 `json:"fat"`
	Carbs     float64 `json:"carbs"`
	Fiber     float64 `json:"fiber"`
}

// MealService handles meal CRUD scoped to the owning user. Lookups that miss
// (or hit a record the caller does not own) return nil rather than an error;
// only infrastructure failures error.
type MealService struct {
	db *gorm.DB
}

func NewMealService(db *gorm.DB) *MealService {
	return &MealService{db: db}
}

// CreateMeal persists a new meal for its owner.
func (s *MealService) CreateMeal(ctx context.Context, meal *models.Meal) (*models.Meal, error) {
	if meal.ConsumedAt.IsZero() {
		meal.ConsumedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(meal).Error; err != nil {
		return nil, err
	}
	return meal, nil
}

// GetMeal retrieves a meal owned by userID, or nil when absent/not owned.
func (s *MealService) GetMeal(ctx context.Context, id, userID uuid.UUID) (*models.Meal, error) {
	var meal models.Meal
	err := s.db.WithContext(ctx).First(&meal, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

// UpdateMeal applies field updates to an owned meal and returns the fresh
// record, or nil when the meal is absent/not owned.
func (s *MealService) UpdateMeal(ctx context.Context, id, userID uuid.UUID, updates map[string]interface{}) (*models.Meal, error) {
	res := s.db.WithContext(ctx).Model(&models.Meal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetMeal(ctx, id, userID)
}

// DeleteMeal removes an owned meal. Returns false (without error) when there
// was nothing to delete.
func (s *MealService) DeleteMeal(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Meal{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListMealsByDay returns the meals consumed on the given calendar day,
// earliest first, together with the day's aggregate summary.
func (s *MealService) ListMealsByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]models.Meal, DaySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var meals []models.Meal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND consumed_at >= ? AND consumed_at < ?", userID, start, end).
		Order("consumed_at ASC").
		Find(&meals).Error
	if err != nil {
		return nil, DaySummary{}, err
	}

	summary := DaySummary{Date: start.Format("2006-01-02"), MealCount: len(meals)}
	for _, m := range meals {
		summary.Calories += m.Calories
		summary.Protein += m.Protein
		summary.Fat += m.Fat
		summary.Carbs += m.Carbs
		summary.Fiber += m.Fiber
	}

	return meals, summary, nil
}
