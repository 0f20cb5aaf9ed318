package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pwoszkowski/macrospy/internal/database"
	"github.com/pwoszkowski/macrospy/internal/models"
)

// newTestDB opens a fresh in-memory database, migrated, private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// newTestUser inserts a user and returns it.
func newTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
