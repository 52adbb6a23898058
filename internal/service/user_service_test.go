package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/activity"
	"inkwell/internal/cache"
	"inkwell/internal/lifecycle"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"
	"inkwell/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ProfileFollowsWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	mina := e.user(t, "mina")
	cat := e.category(t, "misc")

	post, err := e.postSvc.Create(ctx, mina, CreatePostInput{Title: "hello", Content: "world", CategoryID: cat.ID})
	require.NoError(t, err)

	profile, err := e.userSvc.Profile(ctx, mina.UserID)
	require.NoError(t, err)
	assert.Equal(t, "mina", profile.Name)
	assert.True(t, e.mr.Exists(cache.UserKey(mina.UserID)))

	_, err = e.postSvc.Get(ctx, session.Anonymous, post.ID)
	require.NoError(t, err)

	manager := lifecycle.NewManager(e.users, e.inv, 0)
	require.NoError(t, manager.Withdraw(ctx, mina, mina.UserID))

	profile, err = e.userSvc.Profile(ctx, mina.UserID)
	require.NoError(t, err)
	assert.True(t, profile.Withdrawn)
	assert.Equal(t, visibility.WithdrawnAuthorName, profile.Name)

	page, err := e.userSvc.Posts(ctx, session.Anonymous, mina.UserID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, visibility.WithdrawnPostTitle, page.Items[0].Title)
	require.NotNil(t, page.Items[0].Author)
	assert.True(t, page.Items[0].Author.Withdrawn)
	assert.Zero(t, page.Items[0].Author.ID, "a withdrawn writer is never identified")

	_, err = e.userSvc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserService_WithdrawalDropsCachedPostDetails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	other := e.user(t, "other")
	cat := e.category(t, "misc")

	own, err := e.postSvc.Create(ctx, writer, CreatePostInput{Title: "Secret title", Content: "secret body", CategoryID: cat.ID})
	require.NoError(t, err)
	foreign, err := e.postSvc.Create(ctx, other, CreatePostInput{Title: "Open thread", Content: "say hi", CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = e.commentSvc.Create(ctx, writer, CreateCommentInput{PostID: foreign.ID, Content: "secret reply"})
	require.NoError(t, err)

	for _, id := range []uint{own.ID, foreign.ID} {
		_, err = e.postSvc.Get(ctx, session.Anonymous, id)
		require.NoError(t, err)
		require.True(t, e.mr.Exists(cache.PostKey(id)))
	}

	require.NoError(t, lifecycle.NewManager(e.users, e.inv, 0).Withdraw(ctx, writer, writer.UserID))
	assert.False(t, e.mr.Exists(cache.PostKey(own.ID)))
	assert.False(t, e.mr.Exists(cache.PostKey(foreign.ID)))

	detail, err := e.postSvc.Get(ctx, session.Anonymous, own.ID)
	require.NoError(t, err)
	assert.Equal(t, visibility.WithdrawnPostTitle, detail.Post.Title)
	assert.NotContains(t, detail.Post.Content, "secret body")
	require.NotNil(t, detail.Post.Author)
	assert.True(t, detail.Post.Author.Withdrawn)

	detail, err = e.postSvc.Get(ctx, session.Anonymous, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open thread", detail.Post.Title)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, visibility.WithdrawnCommentText, detail.Comments[0].Content)
	require.NotNil(t, detail.Comments[0].Author)
	assert.True(t, detail.Comments[0].Author.Withdrawn)
}

func TestUserService_Activity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	mina := e.user(t, "mina")
	cat := e.category(t, "misc")

	now := time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)
	e.userSvc.now = func() time.Time { return now }

	// 2026-07-13 20:00 UTC is 2026-07-14 in UTC+9.
	created := time.Date(2026, 7, 13, 20, 0, 0, 0, time.UTC)
	edited := time.Date(2026, 7, 15, 1, 0, 0, 0, time.UTC)
	require.NoError(t, e.db.Create(&models.Post{Title: "a", Content: "a", WriterID: mina.UserID, CategoryID: cat.ID, CreatedAt: created, UpdatedAt: edited}).Error)
	require.NoError(t, e.db.Create(&models.Post{Title: "b", Content: "b", WriterID: mina.UserID, CategoryID: cat.ID, CreatedAt: created, UpdatedAt: created}).Error)
	require.NoError(t, e.db.Create(&models.Post{Title: "c", Content: "c", WriterID: mina.UserID, CategoryID: cat.ID, CreatedAt: created, UpdatedAt: created, IsDeleted: true}).Error)

	cal, err := e.userSvc.Activity(ctx, mina.UserID, 7)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-09", cal.Start)
	assert.Equal(t, "2026-07-15", cal.End)
	assert.Equal(t, 3, cal.Total)

	days := map[string]activity.Day{}
	for _, w := range cal.Weeks {
		for _, d := range w {
			if d != nil {
				days[d.Date] = *d
			}
		}
	}
	assert.Equal(t, 2, days["2026-07-14"].Created)
	assert.Equal(t, 1, days["2026-07-15"].Updated)
	assert.Equal(t, 0, days["2026-07-10"].Count)

	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", mina.UserID).
		Updates(map[string]interface{}{"state": models.AccountWithdrawn, "withdrawn_at": now}).Error)
	cal, err = e.userSvc.Activity(ctx, mina.UserID, 7)
	require.NoError(t, err)
	assert.Zero(t, cal.Total, "withdrawn users show an empty calendar")
}

func TestUserService_UpdateProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	mina := e.user(t, "mina")

	_, err := e.userSvc.UpdateProfile(ctx, mina, UpdateProfileInput{Name: "m"})
	assert.ErrorIs(t, err, models.ErrValidation)

	img := "https://img.example.com/m.png"
	user, err := e.userSvc.UpdateProfile(ctx, mina, UpdateProfileInput{Name: "Mina K", Image: &img})
	require.NoError(t, err)
	assert.Equal(t, "Mina K", user.Name)
	require.NotNil(t, user.Image)
	assert.Equal(t, img, *user.Image)
}

func TestAdminService(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	mina := e.user(t, "mina")
	e.user(t, "jun")

	_, err := e.adminSvc.Stats(ctx, mina)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = e.adminSvc.Stats(ctx, session.Anonymous)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	manager := lifecycle.NewManager(e.users, e.inv, 0)
	require.NoError(t, manager.Withdraw(ctx, admin, mina.UserID))

	stats, err := e.adminSvc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Users[models.AccountActive])
	assert.EqualValues(t, 1, stats.Users[models.AccountWithdrawn])

	page, err := e.adminSvc.ListUsers(ctx, admin, repository.UserListFilter{State: models.AccountWithdrawn}, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mina.UserID, page.Items[0].ID)

	_, err = e.adminSvc.ListUsers(ctx, admin, repository.UserListFilter{State: "ghost"}, 0, 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.ErrorIs(t, e.adminSvc.SetRole(ctx, admin, admin.UserID, models.RoleUser), models.ErrConflict)
	require.NoError(t, e.adminSvc.SetRole(ctx, session.Operator, mina.UserID, models.RoleAdmin))
	promoted, err := e.users.GetByID(ctx, mina.UserID)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
}
