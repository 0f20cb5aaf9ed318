package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/internal/models"
)

// MeasurementService manages body measurements scoped to the owner.
type MeasurementService struct {
	db *gorm.DB
}

func NewMeasurementService(db *gorm.DB) *MeasurementService {
	return &MeasurementService{db: db}
}

// CreateMeasurement records a new measurement for its owner.
func (s *MeasurementService) CreateMeasurement(ctx context.Context, m *models.Measurement) (*models.Measurement, error) {
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMeasurements returns the owner's measurements, latest first.
func (s *MeasurementService) ListMeasurements(ctx context.Context, userID uuid.UUID, limit int) ([]models.Measurement, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("measured_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var measurements []models.Measurement
	if err := query.Find(&measurements).Error; err != nil {
		return nil, err
	}
	return measurements, nil
}

// LatestMeasurement returns the most recent measurement, or nil when the user
// has none.
func (s *MeasurementService) LatestMeasurement(ctx context.Context, userID uuid.UUID) (*models.Measurement, error) {
	measurements, err := s.ListMeasurements(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(measurements) == 0 {
		return nil, nil
	}
	return &measurements[0], nil
}

// DeleteMeasurement removes an owned measurement. Returns false when there
// was nothing to delete.
func (s *MeasurementService) DeleteMeasurement(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Measurement{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
