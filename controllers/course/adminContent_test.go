package courseController_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"prolific/cache"
	"prolific/config"
	courseController "prolific/controllers/course"
	"prolific/database"
	"prolific/logger"
	"prolific/middleware"
	"prolific/models"
	"prolific/routers/courseRoutes"
	"prolific/store"
)

const catalogYAML = `
topics:
  - id: money
    title: Money
    courses:
      - id: budgeting
        title: Budgeting
        exercises:
          - title: Where it goes
            steps:
              - type: content
                content: Track every expense for a week.
`

type adminServer struct {
	app    *fiber.App
	db     *gorm.DB
	cached *store.CachedStore
	tokens *middleware.JWTIdentity
}

func newAdminServer(t *testing.T) *adminServer {
	t.Helper()
	log := logger.Nop()
	db, err := database.ConnectDb(&config.Config{Mode: "test", DBDriver: "sqlite", DBName: "file::memory:"}, log)
	require.NoError(t, err)

	cached := store.NewCachedStore(store.NewGormStore(db, log), cache.NewMemory(), time.Minute, log)
	tokens := middleware.NewJWTIdentity("test-secret")
	app := fiber.New()
	courseRoutes.SetupAdminCourseRoutes(app, courseController.NewAdmin(db, cached, t.TempDir(), log), middleware.AuthGate(tokens, time.Second))
	return &adminServer{app: app, db: db, cached: cached, tokens: tokens}
}

func (s *adminServer) upload(t *testing.T, role, query, content string) (int, map[string]interface{}) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("catalog", "money.yaml")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	token, err := s.tokens.GenerateJWT("author-1", "Grace", role, "grace@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/admin/content/import"+query, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env.Data
}

func TestAdminImportRequiresAuthor(t *testing.T) {
	s := newAdminServer(t)
	code, _ := s.upload(t, middleware.RoleLearner, "", catalogYAML)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestAdminImportDryRunWritesNothing(t *testing.T) {
	s := newAdminServer(t)

	code, data := s.upload(t, middleware.RoleAuthor, "?dry_run=true", catalogYAML)
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 1, data["exercises"])

	var n int64
	s.db.Model(&models.Topic{}).Count(&n)
	assert.Zero(t, n)
}

func TestAdminImportUpsertsAndRefreshesCache(t *testing.T) {
	s := newAdminServer(t)
	ctx := context.Background()

	topics, err := s.cached.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)

	code, data := s.upload(t, middleware.RoleAuthor, "", catalogYAML)
	require.Equal(t, fiber.StatusOK, code)
	assert.NotEmpty(t, data["archived_as"])

	topics, err = s.cached.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Money", topics[0].Title)

	code, _ = s.upload(t, middleware.RoleAuthor, "", catalogYAML)
	require.Equal(t, fiber.StatusOK, code)
	var n int64
	s.db.Model(&models.Exercise{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestAdminImportRejectsBadCatalog(t *testing.T) {
	s := newAdminServer(t)
	code, data := s.upload(t, middleware.RoleAuthor, "", "topics:\n  - title: X\n    mystery: 1\n")
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Contains(t, data, "catalog")
}
