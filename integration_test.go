package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/services"
	"github.com/kendall-kelly/hostel-management-api/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@hostel.test"
	adminPassword = "admin-password"
)

func integrationConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:   "sqlite",
		GoEnv:            "test",
		JWTSecret:        "integration-access-secret",
		JWTRefreshSecret: "integration-refresh-secret",
		JWTIssuer:        "hostel-management-api",
		JWTAudience:      "hostel-management-client",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  time.Hour,
		BcryptCost:       4,
		FrontendURL:      "http://localhost:3000",
	}
}

// APIIntegrationTestSuite drives the full router against an in-memory database
type APIIntegrationTestSuite struct {
	suite.Suite
	router    *gin.Engine
	db        *gorm.DB
	publisher *services.MockEventPublisher
}

func (suite *APIIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

// SetupTest gives every test a fresh database with a bootstrap admin
func (suite *APIIntegrationTestSuite) SetupTest() {
	cfg := integrationConfig()
	config.SetConfig(cfg)

	suite.db = testutil.NewTestDB(suite.T())
	config.SetDB(suite.db)

	_, err := services.EnsureAdmin(context.Background(), suite.db, adminEmail, adminPassword, cfg.BcryptCost)
	suite.Require().NoError(err)

	services.SetRevocationStore(services.NewMemoryRevocationStore())
	services.SetPhotoService(nil)
	suite.publisher = services.NewMockEventPublisher()
	suite.publisher.SetAsMockForTesting()
	redisClient = nil

	suite.router = setupRouter(cfg)
}

func TestAPIIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(APIIntegrationTestSuite))
}

func (suite *APIIntegrationTestSuite) request(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w, response
}

func (suite *APIIntegrationTestSuite) login(email, password string) string {
	w, response := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return response["accessToken"].(string)
}

// signup registers a student and returns its token and student ID
func (suite *APIIntegrationTestSuite) signup(name string) (string, uint) {
	w, response := suite.request(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": name + "@hostel.test", "password": "student-password",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	user := response["user"].(map[string]interface{})
	student := user["student"].(map[string]interface{})
	return response["accessToken"].(string), uint(student["id"].(float64))
}

func (suite *APIIntegrationTestSuite) TestHealthEndpoints() {
	w, response := suite.request(http.MethodGet, "/api/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("Server is running", response["message"])

	w, response = suite.request(http.MethodGet, "/api/health/ready", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("ok", response["status"])

	w, _ = suite.request(http.MethodPost, "/api/health", "", nil)
	suite.Equal(http.StatusNotFound, w.Code, "POST should not be routed")

	w, _ = suite.request(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusNotFound, w.Code, "Endpoint should require /api prefix")
}

func (suite *APIIntegrationTestSuite) TestMetricsEndpoint() {
	suite.request(http.MethodGet, "/api/health", "", nil)

	w, _ := suite.request(http.MethodGet, "/api/metrics", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "hostel_http_requests_total")
}

func (suite *APIIntegrationTestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()

	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	suite.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func (suite *APIIntegrationTestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/api/users", "/api/rooms", "/api/students", "/api/complaints", "/api/auth/me"} {
		w, response := suite.request(http.MethodGet, path, "", nil)
		suite.Equal(http.StatusUnauthorized, w.Code, path)
		suite.Equal("Authentication required", response["error"], path)
	}

	w, response := suite.request(http.MethodGet, "/api/rooms", "not-a-jwt", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Invalid or expired token", response["error"])
}

func (suite *APIIntegrationTestSuite) TestStudentCannotUseStaffRoutes() {
	token, studentID := suite.signup("alice")

	w, response := suite.request(http.MethodPost, "/api/rooms", token, map[string]interface{}{
		"roomNumber": "101", "type": "AC", "capacity": 2, "floor": 1,
	})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("Insufficient permissions", response["error"])

	w, _ = suite.request(http.MethodGet, "/api/users", token, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/attendance/mark", token, map[string]interface{}{
		"studentId": studentID, "date": "2024-03-01", "status": "present",
	})
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/rooms/reconcile", token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APIIntegrationTestSuite) TestRoomAllocationThroughAPI() {
	admin := suite.login(adminEmail, adminPassword)
	_, s1 := suite.signup("s1")
	_, s2 := suite.signup("s2")
	_, s3 := suite.signup("s3")

	w, response := suite.request(http.MethodPost, "/api/rooms", admin, map[string]interface{}{
		"roomNumber": "101", "type": "Non-AC", "capacity": 2, "floor": 1,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	roomID := uint(response["room"].(map[string]interface{})["id"].(float64))

	for _, id := range []uint{s1, s2} {
		w, _ = suite.request(http.MethodPut, fmt.Sprintf("/api/students/%d", id), admin, map[string]interface{}{"roomId": roomID})
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}

	w, response = suite.request(http.MethodPut, fmt.Sprintf("/api/students/%d", s3), admin, map[string]interface{}{"roomId": roomID})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Room is at full capacity", response["error"])

	w, response = suite.request(http.MethodGet, fmt.Sprintf("/api/rooms/%d", roomID), admin, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	room := response["room"].(map[string]interface{})
	suite.Equal(float64(2), room["occupied"])
	suite.Len(room["students"], 2)

	w, _ = suite.request(http.MethodDelete, fmt.Sprintf("/api/rooms/%d", roomID), admin, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.request(http.MethodDelete, fmt.Sprintf("/api/students/%d", s1), admin, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, _ = suite.request(http.MethodPut, fmt.Sprintf("/api/students/%d", s3), admin, map[string]interface{}{"roomId": roomID})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	suite.Equal(2, testutil.ReloadRoom(suite.T(), suite.db, roomID).Occupied)
	suite.Equal(2, testutil.AssignedCount(suite.T(), suite.db, roomID))
	suite.Len(suite.publisher.EventsFor(services.QueueStudentRoomChanged), 4)
}

func (suite *APIIntegrationTestSuite) TestComplaintLifecycle() {
	admin := suite.login(adminEmail, adminPassword)
	student, _ := suite.signup("alice")

	w, response := suite.request(http.MethodPost, "/api/complaints", student, map[string]interface{}{
		"title": "No water", "description": "Taps are dry", "category": "water",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	path := fmt.Sprintf("/api/complaints/%d", uint(response["complaint"].(map[string]interface{})["id"].(float64)))

	w, response = suite.request(http.MethodPut, path, student, map[string]interface{}{"status": "resolved"})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("Only admins can resolve complaints", response["error"])

	w, response = suite.request(http.MethodPut, path, admin, map[string]interface{}{"status": "resolved"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("resolved", response["complaint"].(map[string]interface{})["status"])

	suite.Len(suite.publisher.EventsFor(services.QueueComplaintCreated), 1)
	suite.Len(suite.publisher.EventsFor(services.QueueComplaintResolved), 1)
}

func (suite *APIIntegrationTestSuite) TestAttendanceStatistics() {
	admin := suite.login(adminEmail, adminPassword)
	student, studentID := suite.signup("alice")

	for day, status := range map[string]string{
		"2024-03-01": "present",
		"2024-03-02": "present",
		"2024-03-03": "absent",
	} {
		w, _ := suite.request(http.MethodPost, "/api/attendance/mark", admin, map[string]interface{}{
			"studentId": studentID, "date": day, "status": status,
		})
		suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w, response := suite.request(http.MethodGet, fmt.Sprintf("/api/attendance/student/%d", studentID), student, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	stats := response["statistics"].(map[string]interface{})
	suite.Equal(float64(3), stats["total"])
	suite.Equal(float64(2), stats["present"])
	suite.Equal(66.67, stats["percentage"])
}

func (suite *APIIntegrationTestSuite) TestLogoutRevokesToken() {
	token, _ := suite.signup("alice")

	w, _ := suite.request(http.MethodGet, "/api/auth/me", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/auth/logout", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, response := suite.request(http.MethodGet, "/api/auth/me", token, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Token has been revoked", response["error"])
}
