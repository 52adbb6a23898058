package server

import (
	"fmt"
	"net/http"
	"testing"

	"inkwell/internal/activity"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/visibility"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserProfile(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.signup(t, "margaret")

	var profile visibility.ProfileView
	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, "")
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.decode(t, &profile)
	assert.Equal(t, "margaret", profile.Name)
	assert.False(t, profile.Withdrawn)
	assert.NotContains(t, string(resp.Body), "margaret@example.com")

	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodGet, "/api/users/4242", nil, "").Status)
}

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.signup(t, "alan")

	// Warm the profile cache so the update has something to invalidate.
	env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, "")

	resp := env.do(t, http.MethodPut, "/api/users/me", map[string]any{"name": "Alan T."}, token)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))

	var profile visibility.ProfileView
	env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, "").decode(t, &profile)
	assert.Equal(t, "Alan T.", profile.Name)

	bad := env.do(t, http.MethodPut, "/api/users/me", map[string]any{"name": "x"}, token)
	require.Equal(t, fiber.StatusBadRequest, bad.Status)
	assert.Contains(t, bad.errorBody(t).Fields, "name")
}

func TestWithdrawSelf(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	id, token := env.signup(t, "leaver")
	env.post(t, token, cat, "Goodbye", "so long")

	// Warm the anonymous caches the withdrawal must clear.
	env.do(t, http.MethodGet, "/api/posts", nil, "")
	env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, "")

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, token)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))

	assert.Equal(t, fiber.StatusUnauthorized, env.do(t, http.MethodGet, "/api/users/me", nil, token).Status,
		"a withdrawn account's session resolves as anonymous")

	var profile visibility.ProfileView
	env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, "").decode(t, &profile)
	assert.True(t, profile.Withdrawn)
	assert.Equal(t, visibility.WithdrawnAuthorName, profile.Name)

	var page service.Page[visibility.PostView]
	env.do(t, http.MethodGet, "/api/posts", nil, "").decode(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, visibility.WithdrawnPostTitle, page.Items[0].Title)
	require.NotNil(t, page.Items[0].Author)
	assert.True(t, page.Items[0].Author.Withdrawn)

	login := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "leaver@example.com", "password": testPassword,
	}, "")
	assert.Equal(t, fiber.StatusUnauthorized, login.Status)
}

func TestWithdrawOther_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	victim, _ := env.signup(t, "victim")
	_, token := env.signup(t, "mallory")

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", victim), nil, token)
	require.Equal(t, fiber.StatusForbidden, resp.Status)
	assert.Equal(t, models.CodeForbidden, resp.errorBody(t).Code)

	assert.Equal(t, fiber.StatusUnauthorized, env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", victim), nil, "").Status)
}

func TestGetUserActivity(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "general")
	id, token := env.signup(t, "prolific")
	env.post(t, token, cat, "One", "content")
	env.post(t, token, cat, "Two", "content")

	var cal activity.Calendar
	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/activity?days=30", id), nil, "")
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.decode(t, &cal)
	assert.Equal(t, 2, cal.Total)
	assert.NotEmpty(t, cal.Weeks)

	var posts service.Page[visibility.PostView]
	env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/posts", id), nil, "").decode(t, &posts)
	assert.Equal(t, int64(2), posts.Total)
}
