package service

import (
	"context"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/session"
	"inkwell/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreateValidation(t *testing.T) {
	e := newTestEnv(t)
	writer := e.user(t, "writer")

	_, err := e.postSvc.Create(context.Background(), session.Anonymous, CreatePostInput{Title: "t", Content: "c", CategoryID: 1})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = e.postSvc.Create(context.Background(), writer, CreatePostInput{
		Title:      "   ",
		Content:    "<script>alert(1)</script>",
		CategoryID: 77,
	})
	require.ErrorIs(t, err, models.ErrValidation)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"category_id", "content", "title"}, sortedKeys(appErr.Fields))
}

func TestPostService_CreateSanitizesAndShowsInDetail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	reader := e.user(t, "reader")
	cat := e.category(t, "travel")

	view, err := e.postSvc.Create(ctx, writer, CreatePostInput{
		Title:      " Kyoto ",
		Content:    `<p onclick="x()">Temples</p><script>bad()</script>`,
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", view.Title)
	assert.Equal(t, "<p>Temples</p>", view.Content)
	require.NotNil(t, view.Category)
	assert.Equal(t, "travel", view.Category.Slug)

	root, err := e.commentSvc.Create(ctx, reader, CreateCommentInput{PostID: view.ID, Content: "lovely"})
	require.NoError(t, err)
	_, err = e.commentSvc.Create(ctx, writer, CreateCommentInput{PostID: view.ID, ParentID: &root.ID, Content: "thanks"})
	require.NoError(t, err)

	detail, err := e.postSvc.Get(ctx, reader, view.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, detail.Post.CommentCount)
	require.Len(t, detail.Comments, 1)
	require.Len(t, detail.Comments[0].Replies, 1)
	assert.Equal(t, "thanks", detail.Comments[0].Replies[0].Content)

	_, err = e.postSvc.Get(ctx, reader, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostService_AnonymousListIsCachedAndInvalidated(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	cat := e.category(t, "misc")

	_, err := e.postSvc.Create(ctx, writer, CreatePostInput{Title: "first", Content: "one", CategoryID: cat.ID})
	require.NoError(t, err)

	page, err := e.postSvc.List(ctx, session.Anonymous, ListPostsInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.True(t, e.mr.Exists(cache.PostListFirstPage))

	_, err = e.postSvc.Create(ctx, writer, CreatePostInput{Title: "second", Content: "two", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.False(t, e.mr.Exists(cache.PostListFirstPage), "creating a post drops the cached first page")

	page, err = e.postSvc.List(ctx, session.Anonymous, ListPostsInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, "second", page.Items[0].Title)
	assert.Empty(t, page.Items[0].Content, "listings omit bodies")

	byCategory, err := e.postSvc.List(ctx, session.Anonymous, ListPostsInput{CategorySlug: "misc", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, byCategory.Items, 1)
	assert.EqualValues(t, 2, byCategory.Total)

	_, err = e.postSvc.List(ctx, session.Anonymous, ListPostsInput{CategorySlug: "nowhere"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostService_OwnershipAndPlaceholders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	other := e.user(t, "other")
	admin := e.admin(t)
	cat := e.category(t, "misc")

	post, err := e.postSvc.Create(ctx, writer, CreatePostInput{Title: "mine", Content: "body", CategoryID: cat.ID})
	require.NoError(t, err)

	_, err = e.postSvc.Update(ctx, other, UpdatePostInput{PostID: post.ID, Title: "x", Content: "y", CategoryID: cat.ID})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = e.postSvc.Update(ctx, admin, UpdatePostInput{PostID: post.ID, Title: "x", Content: "y", CategoryID: cat.ID})
	assert.ErrorIs(t, err, models.ErrForbidden, "admins moderate but do not edit")
	assert.ErrorIs(t, e.postSvc.Delete(ctx, other, post.ID), models.ErrForbidden)

	updated, err := e.postSvc.Update(ctx, writer, UpdatePostInput{PostID: post.ID, Title: "edited", Content: "new body", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)

	require.NoError(t, e.postSvc.Delete(ctx, admin, post.ID))
	detail, err := e.postSvc.Get(ctx, session.Anonymous, post.ID)
	require.NoError(t, err)
	assert.Equal(t, visibility.DeletedPostTitle, detail.Post.Title)
	assert.Equal(t, visibility.DeletedPostContent, detail.Post.Content)
	require.NotNil(t, detail.Post.Author, "the writer is still shown for a deleted post")

	_, err = e.postSvc.Update(ctx, writer, UpdatePostInput{PostID: post.ID, Title: "again", Content: "b", CategoryID: cat.ID})
	assert.ErrorIs(t, err, models.ErrConflict)

	assert.ErrorIs(t, e.postSvc.Restore(ctx, writer, post.ID), models.ErrForbidden)
	require.NoError(t, e.postSvc.Restore(ctx, admin, post.ID))
	detail, err = e.postSvc.Get(ctx, session.Anonymous, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", detail.Post.Title, "restore drops the cached placeholder")

	adminPage, err := e.postSvc.AdminList(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, adminPage.Total)
	_, err = e.postSvc.AdminList(ctx, writer, 0, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPostService_ToggleLike(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	fan := e.user(t, "fan")
	cat := e.category(t, "misc")

	post, err := e.postSvc.Create(ctx, writer, CreatePostInput{Title: "t", Content: "c", CategoryID: cat.ID})
	require.NoError(t, err)

	_, err = e.postSvc.ToggleLike(ctx, session.Anonymous, post.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	res, err := e.postSvc.ToggleLike(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: true, LikeCount: 1}, *res)

	detail, err := e.postSvc.Get(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.True(t, detail.Post.Liked)

	res, err = e.postSvc.ToggleLike(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: false, LikeCount: 0}, *res)

	require.NoError(t, e.postSvc.Delete(ctx, writer, post.ID))
	_, err = e.postSvc.ToggleLike(ctx, fan, post.ID)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestPostService_SearchDropsStopWords(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	writer := e.user(t, "writer")
	cat := e.category(t, "misc")
	require.NoError(t, e.stopWords.Add(ctx, "the", "of"))

	_, err := e.postSvc.Create(ctx, writer, CreatePostInput{Title: "The art of ramen", Content: "broth", CategoryID: cat.ID})
	require.NoError(t, err)

	found, err := e.postSvc.Search(ctx, session.Anonymous, "the ART of", 0, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := e.postSvc.Search(ctx, session.Anonymous, "the of", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none, "a query of only stop words matches nothing")

	none, err = e.postSvc.Search(ctx, session.Anonymous, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
