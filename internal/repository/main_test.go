package repository

import (
	"fmt"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB opens a postgres-dialect GORM handle over sqlmock for tests
// that assert on generated SQL.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB returns a migrated in-memory SQLite database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{Env: "test", DBDriver: "sqlite", SQLitePath: "file::memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	hash := "hash"
	image := "https://img.example.com/" + name + ".png"
	user := &models.User{
		Name:   name,
		Email:  fmt.Sprintf("%s@example.com", name),
		Passwd: &hash,
		Image:  &image,
		Role:   models.RoleUser,
		State:  models.AccountActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCategory(t *testing.T, db *gorm.DB, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedPost(t *testing.T, db *gorm.DB, writer *models.User, category *models.Category, title, content string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:      title,
		Content:    content,
		WriterID:   writer.ID,
		CategoryID: category.ID,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func withdrawnAt(t *testing.T, db *gorm.DB, user *models.User, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"state": models.AccountWithdrawn, "withdrawn_at": at}).Error)
}
