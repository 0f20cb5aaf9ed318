package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwoszkowski/macrospy/internal/models"
)

func TestOnboardingService_Complete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewTDEEService(nil))
	owner := newTestUser(t, db, "owner@example.com")

	req := OnboardingRequest{
		Gender:        "male",
		HeightCm:      180,
		BirthYear:     time.Now().Year() - 30,
		ActivityLevel: "moderately_active",
		WeightKg:      75,
	}

	result, err := svc.Complete(ctx, owner.ID, req)
	require.NoError(t, err)

	require.NotNil(t, result.Profile)
	assert.Equal(t, "male", result.Profile.Gender)
	assert.Equal(t, 180.0, result.Profile.HeightCm)

	require.NotNil(t, result.Goal)
	assert.Equal(t, result.TDEE.SuggestedTargets.Calories, result.Goal.Calories)
	assert.InDelta(t, 2681.5, result.TDEE.TDEE, 0.01)

	require.NotNil(t, result.Measurement)
	assert.Equal(t, 75.0, result.Measurement.WeightKg)

	t.Run("repeat replaces profile and goal", func(t *testing.T) {
		again := req
		again.WeightKg = 73
		again.ActivityLevel = "lightly_active"

		second, err := svc.Complete(ctx, owner.ID, again)
		require.NoError(t, err)
		assert.Equal(t, result.Goal.ID, second.Goal.ID)
		assert.Equal(t, result.Profile.ID, second.Profile.ID)
		assert.Equal(t, "lightly_active", second.Profile.ActivityLevel)

		var goalCount int64
		require.NoError(t, db.Model(&models.Goal{}).Where("user_id = ?", owner.ID).Count(&goalCount).Error)
		assert.Equal(t, int64(1), goalCount)

		// Each completion records a fresh weight measurement.
		var measurementCount int64
		require.NoError(t, db.Model(&models.Measurement{}).Where("user_id = ?", owner.ID).Count(&measurementCount).Error)
		assert.Equal(t, int64(2), measurementCount)
	})
}

func TestOnboardingService_ImplausibleBirthYear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewTDEEService(nil))
	owner := newTestUser(t, db, "owner@example.com")

	for _, year := range []int{time.Now().Year() + 1, time.Now().Year() - 200} {
		_, err := svc.Complete(ctx, owner.ID, OnboardingRequest{
			Gender:        "female",
			HeightCm:      165,
			BirthYear:     year,
			ActivityLevel: "sedentary",
			WeightKg:      60,
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	// Nothing was written.
	var count int64
	require.NoError(t, db.Model(&models.UserProfile{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestOnboardingService_RollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewTDEEService(nil))
	owner := newTestUser(t, db, "owner@example.com")

	// The measurement insert is the last write in the transaction; without
	// its table it fails after the profile and goal were already written.
	require.NoError(t, db.Migrator().DropTable(&models.Measurement{}))

	_, err := svc.Complete(ctx, owner.ID, OnboardingRequest{
		Gender:        "male",
		HeightCm:      180,
		BirthYear:     time.Now().Year() - 30,
		ActivityLevel: "moderately_active",
		WeightKg:      75,
	})
	require.Error(t, err)

	var profiles, goals int64
	require.NoError(t, db.Model(&models.UserProfile{}).Where("user_id = ?", owner.ID).Count(&profiles).Error)
	require.NoError(t, db.Model(&models.Goal{}).Where("user_id = ?", owner.ID).Count(&goals).Error)
	assert.Equal(t, int64(0), profiles)
	assert.Equal(t, int64(0), goals)
}

func TestOnboardingService_SuggesterFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	suggester := &fakeSuggester{err: errors.New("provider down")}
	svc := NewOnboardingService(db, NewTDEEService(suggester))
	owner := newTestUser(t, db, "owner@example.com")

	result, err := svc.Complete(ctx, owner.ID, OnboardingRequest{
		Gender:        "male",
		HeightCm:      180,
		BirthYear:     time.Now().Year() - 30,
		ActivityLevel: "moderately_active",
		WeightKg:      75,
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackMacroTargets(result.TDEE.TDEE), result.TDEE.SuggestedTargets)
	assert.Equal(t, result.TDEE.SuggestedTargets.Calories, result.Goal.Calories)
}
