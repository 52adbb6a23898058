package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "Str0ng!Passw0rd"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                     "test",
		Port:                    "0",
		JWTSecret:               "test-secret-key-12345678901234567890",
		AllowedOrigins:          "http://localhost:3000",
		DBDriver:                "sqlite",
		SQLitePath:              "file::memory:",
		SessionTTLHours:         24,
		AnonymizeRetentionHours: 24 * 7,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr}
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r response) decode(t *testing.T, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, dest), string(r.Body))
}

func (r response) errorBody(t *testing.T) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	r.decode(t, &body)
	return body
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
}

// signup registers an account and returns its id and bearer token.
func (e *testEnv) signup(t *testing.T, name string) (uint, string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"name":     name,
		"email":    fmt.Sprintf("%s@example.com", name),
		"password": testPassword,
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))

	var body struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	resp.decode(t, &body)
	return body.User.ID, body.Token
}

// admin registers an account and promotes it directly in the store.
func (e *testEnv) admin(t *testing.T, name string) (uint, string) {
	t.Helper()
	id, token := e.signup(t, name)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", id).Update("role", models.RoleAdmin).Error)
	return id, token
}

func (e *testEnv) category(t *testing.T, slug string) uint {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, e.db.Create(c).Error)
	return c.ID
}

func (e *testEnv) post(t *testing.T, token string, categoryID uint, title, content string) uint {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title":       title,
		"content":     content,
		"category_id": categoryID,
	}, token)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var view struct {
		ID uint `json:"id"`
	}
	resp.decode(t, &view)
	return view.ID
}
