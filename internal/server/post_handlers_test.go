package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/visibility"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")

	resp := env.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title": "hi", "content": "body", "category_id": cat,
	}, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.Status)
	assert.Equal(t, models.CodeUnauthorized, resp.errorBody(t).Code)
}

func TestCreatePost_FieldErrors(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup(t, "writer")

	resp := env.do(t, http.MethodPost, "/api/posts", map[string]any{}, token)
	require.Equal(t, fiber.StatusBadRequest, resp.Status)

	body := resp.errorBody(t)
	assert.Equal(t, models.CodeValidation, body.Code)
	for _, field := range []string{"title", "content", "category_id"} {
		assert.Contains(t, body.Fields, field)
	}
}

func TestPostDetail_ThreadsAndLikes(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, writer := env.signup(t, "writer")
	_, reader := env.signup(t, "reader")

	postID := env.post(t, writer, cat, "Hello", "<p>first post</p><script>alert(1)</script>")

	root := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), map[string]any{"content": "nice"}, reader)
	require.Equal(t, fiber.StatusCreated, root.Status, string(root.Body))
	var rootView visibility.CommentView
	root.decode(t, &rootView)

	reply := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), map[string]any{
		"content": "thanks", "parent_id": rootView.ID,
	}, writer)
	require.Equal(t, fiber.StatusCreated, reply.Status, string(reply.Body))

	like := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), nil, reader)
	require.Equal(t, fiber.StatusOK, like.Status)
	var liked service.LikeResult
	like.decode(t, &liked)
	assert.Equal(t, service.LikeResult{Liked: true, LikeCount: 1}, liked)

	var detail service.PostDetail
	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, reader)
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.decode(t, &detail)

	assert.Equal(t, "Hello", detail.Post.Title)
	assert.NotContains(t, detail.Post.Content, "<script>")
	assert.True(t, detail.Post.Liked)
	assert.Equal(t, int64(1), detail.Post.LikeCount)
	assert.Equal(t, int64(2), detail.Post.CommentCount)
	require.Len(t, detail.Comments, 1)
	require.Len(t, detail.Comments[0].Replies, 1)
	assert.Equal(t, "thanks", detail.Comments[0].Replies[0].Content)

	unlike := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), nil, reader)
	unlike.decode(t, &liked)
	assert.Equal(t, service.LikeResult{Liked: false, LikeCount: 0}, liked)
}

func TestCreateComment_ParentFromAnotherPost(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, token := env.signup(t, "writer")

	first := env.post(t, token, cat, "One", "one")
	second := env.post(t, token, cat, "Two", "two")

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", first), map[string]any{"content": "c"}, token)
	require.Equal(t, fiber.StatusCreated, resp.Status)
	var parent visibility.CommentView
	resp.decode(t, &parent)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", second), map[string]any{
		"content": "misplaced", "parent_id": parent.ID,
	}, token)
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.errorBody(t).Fields, "parent_id")
}

func TestDeletePost_OwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, writer := env.signup(t, "writer")
	_, stranger := env.signup(t, "stranger")

	postID := env.post(t, writer, cat, "Mine", "content")
	path := fmt.Sprintf("/api/posts/%d", postID)

	assert.Equal(t, fiber.StatusForbidden, env.do(t, http.MethodDelete, path, nil, stranger).Status)
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodDelete, path, nil, writer).Status)

	var detail service.PostDetail
	env.do(t, http.MethodGet, path, nil, "").decode(t, &detail)
	assert.True(t, detail.Post.Redacted)
	assert.Equal(t, visibility.DeletedPostTitle, detail.Post.Title)
	require.NotNil(t, detail.Post.Author, "a deleted post still shows its writer")
	assert.Equal(t, "writer", detail.Post.Author.Name)

	comment := env.do(t, http.MethodPost, path+"/comments", map[string]any{"content": "late"}, stranger)
	assert.Equal(t, fiber.StatusConflict, comment.Status)
}

func TestUpdatePost_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, writer := env.signup(t, "writer")
	_, admin := env.admin(t, "boss")

	postID := env.post(t, writer, cat, "Draft", "content")
	path := fmt.Sprintf("/api/posts/%d", postID)
	update := map[string]any{"title": "Final", "content": "content", "category_id": cat}

	assert.Equal(t, fiber.StatusForbidden, env.do(t, http.MethodPut, path, update, admin).Status)

	resp := env.do(t, http.MethodPut, path, update, writer)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))
	var view visibility.PostView
	resp.decode(t, &view)
	assert.Equal(t, "Final", view.Title)
}

func TestGetPosts_AnonymousFirstPageIsInvalidated(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, token := env.signup(t, "writer")
	env.post(t, token, cat, "First", "content")

	var page service.Page[visibility.PostView]
	env.do(t, http.MethodGet, "/api/posts", nil, "").decode(t, &page)
	assert.Equal(t, int64(1), page.Total)
	assert.True(t, env.mr.Exists(cache.PostListFirstPage))

	env.post(t, token, cat, "Second", "content")
	assert.False(t, env.mr.Exists(cache.PostListFirstPage))

	env.do(t, http.MethodGet, "/api/posts", nil, "").decode(t, &page)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Second", page.Items[0].Title)
	assert.Empty(t, page.Items[0].Content, "listings omit bodies")
}

func TestGetCategoryPosts(t *testing.T) {
	env := newTestEnv(t)
	news := env.category(t, "news")
	env.category(t, "misc")
	_, token := env.signup(t, "writer")
	env.post(t, token, news, "Headline", "content")

	var page service.Page[visibility.PostView]
	resp := env.do(t, http.MethodGet, "/api/categories/news/posts", nil, "")
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.decode(t, &page)
	assert.Equal(t, int64(1), page.Total)

	env.do(t, http.MethodGet, "/api/categories/misc/posts", nil, "").decode(t, &page)
	assert.Equal(t, int64(0), page.Total)

	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodGet, "/api/categories/nope/posts", nil, "").Status)

	var categories []models.Category
	env.do(t, http.MethodGet, "/api/categories", nil, "").decode(t, &categories)
	require.Len(t, categories, 2)
	counts := map[string]int64{}
	for _, c := range categories {
		counts[c.Slug] = c.PostCount
	}
	assert.Equal(t, map[string]int64{"news": 1, "misc": 0}, counts)
}

func TestSearchPosts(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, token := env.signup(t, "writer")
	env.post(t, token, cat, "The quick fox", "jumps over the dog")
	env.post(t, token, cat, "Slow turtle", "naps")
	require.NoError(t, env.srv.stopWordRepo.Add(context.Background(), "the", "over"))

	search := func(q string) []visibility.PostView {
		var posts []visibility.PostView
		resp := env.do(t, http.MethodGet, "/api/posts/search?q="+q, nil, "")
		require.Equal(t, fiber.StatusOK, resp.Status)
		resp.decode(t, &posts)
		return posts
	}

	assert.Len(t, search("quick+dog"), 1)
	assert.Len(t, search("QUICK"), 1)
	assert.Empty(t, search("quick+turtle"))
	assert.Empty(t, search("the+over"), "a query of only stop words matches nothing")
	assert.Empty(t, search(""))
}

func TestGetPost_BadAndMissingID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/posts/abc", nil, "")
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid ID", resp.errorBody(t).Error)

	resp = env.do(t, http.MethodGet, "/api/posts/999", nil, "")
	require.Equal(t, fiber.StatusNotFound, resp.Status)
	body := resp.errorBody(t)
	assert.Equal(t, models.CodeNotFound, body.Code)
	assert.Contains(t, body.Error, "not found")
}

func TestDeleteComment_OwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	_, writer := env.signup(t, "writer")
	_, commenter := env.signup(t, "commenter")
	_, admin := env.admin(t, "boss")

	postID := env.post(t, writer, cat, "Post", "content")
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), map[string]any{"content": "rude"}, commenter)
	require.Equal(t, fiber.StatusCreated, resp.Status)
	var comment visibility.CommentView
	resp.decode(t, &comment)
	path := fmt.Sprintf("/api/posts/%d/comments/%d", postID, comment.ID)

	assert.Equal(t, fiber.StatusForbidden, env.do(t, http.MethodDelete, path, nil, writer).Status)
	assert.Equal(t, fiber.StatusForbidden, env.do(t, http.MethodPut, path, map[string]any{"content": "x"}, admin).Status)
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodDelete, path, nil, admin).Status)

	var detail service.PostDetail
	env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, "").decode(t, &detail)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, visibility.DeletedCommentText, detail.Comments[0].Content)
	assert.NotNil(t, detail.Comments[0].Author)
}
