package models

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestEnsureAdminCreatesAccount(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, EnsureAdmin(db, "admin@portal.local", "admin-password"))

	var user User
	require.NoError(t, db.Where("email = ?", "admin@portal.local").First(&user).Error)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.True(t, user.CheckPassword("admin-password"))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, EnsureAdmin(db, "admin@portal.local", "admin-password"))
	// The second run must not duplicate the row or rotate the password.
	require.NoError(t, EnsureAdmin(db, "admin@portal.local", "other-password"))

	var count int64
	require.NoError(t, db.Model(&User{}).Where("email = ?", "admin@portal.local").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var user User
	require.NoError(t, db.Where("email = ?", "admin@portal.local").First(&user).Error)
	assert.True(t, user.CheckPassword("admin-password"))
}

func TestEnsureAdminPromotesExistingRow(t *testing.T) {
	db := openTestDB(t)

	existing := &User{Email: "admin@portal.local", Role: RoleClinic}
	require.NoError(t, existing.SetPassword("admin-password"))
	require.NoError(t, db.Create(existing).Error)

	require.NoError(t, EnsureAdmin(db, "admin@portal.local", ""))

	var user User
	require.NoError(t, db.Where("email = ?", "admin@portal.local").First(&user).Error)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.True(t, user.CheckPassword("admin-password"), "promotion must not touch the password")
}

func TestEnsureAdminRequiresPasswordOnFreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := EnsureAdmin(db, "admin@portal.local", "")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Zero(t, count)
}
