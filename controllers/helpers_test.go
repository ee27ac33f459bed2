package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/services"
	"github.com/kendall-kelly/hostel-management-api/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:   "sqlite",
		GoEnv:            "test",
		JWTSecret:        "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		JWTIssuer:        "hostel-management-api",
		JWTAudience:      "hostel-management-client",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  time.Hour,
		BcryptCost:       4,
	}
}

// setupTestEnv installs a fresh database, config, revocation store and mock
// event publisher, and returns the database and publisher
func setupTestEnv(t *testing.T) (*gorm.DB, *services.MockEventPublisher) {
	t.Helper()

	db := testutil.NewTestDB(t)
	config.SetDB(db)
	config.SetConfig(testConfig())
	services.SetRevocationStore(services.NewMemoryRevocationStore())
	services.SetPhotoService(nil)

	publisher := services.NewMockEventPublisher()
	publisher.SetAsMockForTesting()

	return db, publisher
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates EnsureValidToken by placing the identity in the
// context the same way the real middleware does
func mockAuthMiddleware(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func performJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}
