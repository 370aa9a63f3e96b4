package seed

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"docflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Request{}, &models.Activity{},
		&models.KnowledgeBaseItem{}, &models.Document{}, &models.DocumentVersion{},
	))
	return db
}

func TestRunSeedsRosterAndData(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Run(db, Options{ExtraUsers: 3, Requests: 10, Deterministic: true}))

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(len(defaultRoster)+3), userCount)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@docflow.local").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, "admin12345", admin.Password, "password is stored hashed")

	var requestCount int64
	require.NoError(t, db.Model(&models.Request{}).Count(&requestCount).Error)
	assert.Equal(t, int64(10), requestCount)

	// Every request carries at least its creation activity.
	var activityCount int64
	require.NoError(t, db.Model(&models.Activity{}).Count(&activityCount).Error)
	assert.GreaterOrEqual(t, activityCount, requestCount)

	var kbCount, docCount int64
	require.NoError(t, db.Model(&models.KnowledgeBaseItem{}).Count(&kbCount).Error)
	require.NoError(t, db.Model(&models.Document{}).Count(&docCount).Error)
	assert.NotZero(t, kbCount)
	assert.NotZero(t, docCount)

	// Published requests record their publication timestamp.
	var published []models.Request
	require.NoError(t, db.Where("status = ?", models.StatusPublished).Find(&published).Error)
	for _, req := range published {
		assert.NotNil(t, req.PublishedAt)
	}
}

func TestRunIsIdempotentOnRoster(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Run(db, Options{Deterministic: true}))
	require.NoError(t, Run(db, Options{Deterministic: true}))

	var adminCount int64
	require.NoError(t, db.Model(&models.User{}).
		Where("email = ?", "admin@docflow.local").Count(&adminCount).Error)
	assert.Equal(t, int64(1), adminCount)

	// Reference content is count-guarded and not duplicated.
	var kbCount int64
	require.NoError(t, db.Model(&models.KnowledgeBaseItem{}).Count(&kbCount).Error)
	assert.Equal(t, int64(3), kbCount)
}

func TestLoadRosterOverride(t *testing.T) {
	db := setupSeedDB(t)

	path := t.TempDir() + "/roster.yaml"
	roster := `users:
  - name: Solo Admin
    email: solo@docflow.local
    password: solo1234567
    role: ADMIN
    team: Ops
`
	require.NoError(t, os.WriteFile(path, []byte(roster), 0o600))

	require.NoError(t, Run(db, Options{RosterPath: path}))

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(1), userCount)

	var solo models.User
	require.NoError(t, db.Where("email = ?", "solo@docflow.local").First(&solo).Error)
	assert.Equal(t, models.RoleAdmin, solo.Role)
}

func TestLoadRosterRejectsEmptyFile(t *testing.T) {
	path := t.TempDir() + "/empty.yaml"
	require.NoError(t, os.WriteFile(path, []byte("users: []\n"), 0o600))

	_, err := loadRoster(path)
	assert.Error(t, err)
}
