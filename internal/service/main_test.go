package service

import (
	"fmt"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires the services over an in-memory SQLite database and a
// miniredis cache.
type testEnv struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	store *cache.Store
	inv   *cache.Invalidator

	users      repository.UserRepository
	posts      repository.PostRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	stopWords  repository.StopWordRepository

	auth        *AuthService
	postSvc     *PostService
	commentSvc  *CommentService
	userSvc     *UserService
	categorySvc *CategoryService
	adminSvc    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect(&config.Config{Env: "test", DBDriver: "sqlite", SQLitePath: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &testEnv{db: db, mr: mr, store: cache.NewStore(rdb)}
	e.inv = cache.NewInvalidator(e.store, nil)
	e.users = repository.NewUserRepository(db)
	e.posts = repository.NewPostRepository(db)
	e.comments = repository.NewCommentRepository(db)
	e.categories = repository.NewCategoryRepository(db)
	e.stopWords = repository.NewStopWordRepository(db)

	e.auth = NewAuthService(e.users, session.NewIssuer("test-secret-test-secret-test-secret", time.Hour), cache.NewRevocations(e.store))
	e.postSvc = NewPostService(e.posts, e.comments, e.categories, e.stopWords, e.store, e.inv)
	e.commentSvc = NewCommentService(e.comments, e.posts, e.inv)
	e.userSvc = NewUserService(e.users, e.posts, e.store, e.inv)
	e.categorySvc = NewCategoryService(e.categories, e.store)
	e.adminSvc = NewAdminService(e.users, e.posts, e.comments, e.inv)
	return e
}

func (e *testEnv) user(t *testing.T, name string) session.Session {
	t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Role: models.RoleUser, State: models.AccountActive}
	require.NoError(t, e.db.Create(u).Error)
	return session.Session{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) admin(t *testing.T) session.Session {
	t.Helper()
	u := &models.User{Name: "admin", Email: "admin@example.com", Role: models.RoleAdmin, State: models.AccountActive}
	require.NoError(t, e.db.Create(u).Error)
	return session.Session{UserID: u.ID, Role: u.Role}
}

func (e *testEnv) category(t *testing.T, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, e.db.Create(c).Error)
	return c
}
