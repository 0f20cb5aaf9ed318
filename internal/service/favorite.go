package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// MaxFavoritesPerUser caps how many favorite meals one owner can keep.
const MaxFavoritesPerUser = 100

// FavoriteService handles favorite-meal operations scoped to the owner.
type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// ListFavorites returns the owner's favorites, newest first.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.FavoriteMeal, error) {
	var favorites []models.FavoriteMeal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// CreateFavorite inserts a favorite unless the owner is already at the cap.
// The count check and the insert run in one transaction so a concurrent pair
// of creates cannot both slip under the limit.
func (s *FavoriteService) CreateFavorite(ctx context.Context, favorite *models.FavoriteMeal) (*models.FavoriteMeal, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FavoriteMeal{}).
			Where("user_id = ?", favorite.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= MaxFavoritesPerUser {
			return ErrFavoriteLimit
		}
		return tx.Create(favorite).Error
	})
	if err != nil {
		return nil, err
	}
	return favorite, nil
}

// DeleteFavorite removes an owned favorite. Returns false when there was
// nothing to delete.
func (s *FavoriteService) DeleteFavorite(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.FavoriteMeal{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LogFavorite copies a favorite into a new meal record for the same owner,
// consumed at the given time. Returns nil when the favorite is absent or
// owned by someone else.
func (s *FavoriteService) LogFavorite(ctx context.Context, id, userID uuid.UUID, consumedAt time.Time) (*models.Meal, error) {
	var favorite models.FavoriteMeal
	err := s.db.WithContext(ctx).First(&favorite, "id = ? AND user_id = ?", id, userID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if consumedAt.IsZero() {
		consumedAt = time.Now()
	}
	meal := models.Meal{
		UserID:     userID,
		Name:       favorite.Name,
		Calories:   favorite.Calories,
		Protein:    favorite.Protein,
		Fat:        favorite.Fat,
		Carbs:      favorite.Carbs,
		Fiber:      favorite.Fiber,
		ConsumedAt: consumedAt,
	}
	if err := s.db.WithContext(ctx).Create(&meal).Error; err != nil {
		return nil, err
	}
	return &meal, nil
}
