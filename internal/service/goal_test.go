package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwoszkowski/macrospy/internal/models"
)

func TestGoalService_Upsert(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewGoalService(db)
	owner := newTestUser(t, db, "owner@example.com")

	got, err := svc.GetGoal(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	first, err := svc.UpsertGoal(ctx, owner.ID, MacroTargets{Calories: 2400, Protein: 160, Fat: 70, Carbs: 260, Fiber: 30})
	require.NoError(t, err)
	assert.Equal(t, 2400.0, first.Calories)

	second, err := svc.UpsertGoal(ctx, owner.ID, MacroTargets{Calories: 2100, Protein: 150, Fat: 60, Carbs: 220, Fiber: 28})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2100.0, second.Calories)

	var count int64
	require.NoError(t, db.Model(&models.Goal{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGoalService_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewGoalService(db)
	owner := newTestUser(t, db, "owner@example.com")

	deleted, err := svc.DeleteGoal(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.UpsertGoal(ctx, owner.ID, MacroTargets{Calories: 2000})
	require.NoError(t, err)

	deleted, err = svc.DeleteGoal(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := svc.GetGoal(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
