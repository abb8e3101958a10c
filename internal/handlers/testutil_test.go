package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/utils"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testCookieName = "nexus_session"

// fakeDocStorage stands in for MinIO in tests. It records every put and
// delete so tests can assert on what reached storage.
type fakeDocStorage struct {
	objects map[string][]byte
	removed []string
	cleaned []string
	putErr  error
}

func newFakeDocStorage() *fakeDocStorage {
	return &fakeDocStorage{objects: make(map[string][]byte)}
}

func (f *fakeDocStorage) PutProjectDoc(_ context.Context, projectID, docID, filename string, reader io.Reader, _ int64, _ string) (string, string, error) {
	if f.putErr != nil {
		return "", "", f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}
	key := fmt.Sprintf("projects/%s/%s-%s", projectID, docID, filename)
	f.objects[key] = data
	return key, "http://storage.test/" + key, nil
}

func (f *fakeDocStorage) RemoveProjectDoc(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeDocStorage) RemoveProjectFiles(_ context.Context, projectID string) error {
	f.cleaned = append(f.cleaned, projectID)
	return nil
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	storage *fakeDocStorage
}

// setupTestEnv builds a full routed application against an in-memory
// database, mirroring the wiring in cmd/server.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	utils.ConfigureJWT("handler-test-secret", 24)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting raw database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.AccessGrant{},
		&models.SupportMessage{},
	); err != nil {
		t.Fatalf("failed migrating test schema: %v", err)
	}

	storage := newFakeDocStorage()

	sessionCfg := config.SessionConfig{
		Secret:          "handler-test-secret",
		ExpirationHours: 24,
		CookieName:      testCookieName,
	}
	uploadCfg := config.UploadConfig{
		MaxFileSize:       1024 * 1024,
		MaxFilesPerUpload: 2,
		AllowedExtensions: []string{".pdf", ".txt", ".png"},
	}

	accessService := services.NewAccessService(db)
	projectService := services.NewProjectService(db, accessService, storage)
	grantService := services.NewGrantService(db, accessService)

	authHandler := NewAuthHandler(db, sessionCfg)
	projectsHandler := NewProjectsHandler(projectService)
	accessHandler := NewAccessHandler(grantService)
	uploadsHandler := NewUploadsHandler(projectService, accessService, storage, uploadCfg)
	supportHandler := NewSupportHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db, sessionCfg.CookieName)

	app := fiber.New()
	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Post("/logout", authMiddleware.RequireAuth, authHandler.Logout)
	authRoutes.Patch("/me/profile", authMiddleware.RequireAuth, authHandler.UpdateProfile)
	authRoutes.Patch("/users/:userId/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Post("/admin/users", authMiddleware.RequireAuth, middleware.AdminOnly, authHandler.CreateUser)

	projectRoutes := api.Group("/projects", authMiddleware.RequireAuth)
	projectRoutes.Get("/", projectsHandler.List)
	projectRoutes.Get("/shared", projectsHandler.ListShared)
	projectRoutes.Get("/users/search", accessHandler.SearchUsers)
	projectRoutes.Post("/", projectsHandler.Create)
	projectRoutes.Get("/:id", projectsHandler.Get)
	projectRoutes.Put("/:id", projectsHandler.Update)
	projectRoutes.Delete("/:id", projectsHandler.Delete)
	projectRoutes.Get("/:id/access", accessHandler.List)
	projectRoutes.Post("/:id/access", accessHandler.Create)
	projectRoutes.Delete("/:id/access/:userId", accessHandler.Revoke)
	projectRoutes.Post("/:id/docs", uploadsHandler.Upload)
	projectRoutes.Delete("/:id/docs/:docId", uploadsHandler.Delete)

	supportRoutes := api.Group("/support", authMiddleware.RequireAuth)
	supportRoutes.Get("/messages", supportHandler.List)
	supportRoutes.Post("/messages", supportHandler.Create)
	supportRoutes.Patch("/messages/:id/read", supportHandler.MarkRead)

	return &testEnv{app: app, db: db, storage: storage}
}

func performRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func performJSONRequest(t *testing.T, env *testEnv, method, path string, payload interface{}, token string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed marshaling payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("failed building request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return performRequest(t, env.app, req)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return out
}

func dataMap(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data field, got %v", body)
	}
	return data
}

func dataList(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()

	data, ok := body["data"].([]interface{})
	if !ok {
		t.Fatalf("expected array data field, got %v", body)
	}
	return data
}

// registerUser registers through the API and returns the session token from
// the Set-Cookie response header.
func registerUser(t *testing.T, env *testEnv, userID, password, displayName string) string {
	t.Helper()

	resp := performJSONRequest(t, env, http.MethodPost, "/api/auth/register", map[string]string{
		"userId":      userID,
		"password":    password,
		"displayName": displayName,
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("registration of %q failed with status %d", userID, resp.StatusCode)
	}

	token := sessionCookie(resp)
	if token == "" {
		t.Fatalf("expected a session cookie for %q", userID)
	}
	resp.Body.Close()
	return token
}

func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == testCookieName {
			return cookie.Value
		}
	}
	return ""
}

func tokenFor(t *testing.T, env *testEnv, userID string) string {
	t.Helper()

	var user models.User
	if err := env.db.First(&user, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("failed loading user %q: %v", userID, err)
	}
	token, err := utils.GenerateToken(&user)
	if err != nil {
		t.Fatalf("failed generating token for %q: %v", userID, err)
	}
	return token
}

func createProjectVia(t *testing.T, env *testEnv, token, id, title string) map[string]interface{} {
	t.Helper()

	resp := performJSONRequest(t, env, http.MethodPost, "/api/projects", map[string]interface{}{
		"id":    id,
		"title": title,
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("project creation failed with status %d", resp.StatusCode)
	}
	return dataMap(t, decodeJSONMap(t, resp))
}

func seedProject(t *testing.T, env *testEnv, id, ownerUserID, title string, createdAt time.Time) {
	t.Helper()

	project := models.Project{
		ID:          id,
		OwnerUserID: ownerUserID,
		Title:       title,
		Status:      "Upcoming",
		Priority:    "Medium",
		Docs:        models.DocList{},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := env.db.Create(&project).Error; err != nil {
		t.Fatalf("failed seeding project %q: %v", id, err)
	}
}
