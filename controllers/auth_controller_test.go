package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter() *gin.Engine {
	router := setupTestRouter()
	auth := router.Group("/api/auth")
	auth.POST("/signup", Signup)
	auth.POST("/login", Login)
	auth.POST("/refresh", Refresh)

	protected := auth.Group("", middleware.EnsureValidToken(config.GetConfig()))
	protected.GET("/me", GetMe)
	protected.POST("/logout", Logout)
	return router
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	db, _ := setupTestEnv(t)

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "student signup",
			body:           map[string]interface{}{"name": "Alice", "email": "Alice@Hostel.test", "password": "secret1"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate email",
			body:           map[string]interface{}{"name": "Alice", "email": "alice@hostel.test", "password": "secret1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "User already exists",
		},
		{
			name:           "short password",
			body:           map[string]interface{}{"name": "Bob", "email": "bob@hostel.test", "password": "123"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Password must be at least 6 characters",
		},
		{
			name:           "missing name",
			body:           map[string]interface{}{"email": "carol@hostel.test", "password": "secret1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Name, email and password are required",
		},
		{
			name:           "admin signup refused",
			body:           map[string]interface{}{"name": "Eve", "email": "eve@hostel.test", "password": "secret1", "role": "admin"},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Staff accounts cannot be created through signup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(t, authRouter(), http.MethodPost, "/api/auth/signup", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			response := decodeBody(t, w)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, response["error"])
				return
			}
			assert.Equal(t, "User created successfully", response["message"])
			assert.NotEmpty(t, response["accessToken"])
			user := response["user"].(map[string]interface{})
			assert.Equal(t, "alice@hostel.test", user["email"])
			assert.Equal(t, models.RoleStudent, user["role"])
			assert.NotContains(t, user, "password")

			access := cookieNamed(w, middleware.AccessTokenCookie)
			require.NotNil(t, access)
			assert.True(t, access.HttpOnly)
			assert.NotNil(t, cookieNamed(w, middleware.RefreshTokenCookie))
		})
	}

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@hostel.test").First(&user).Error)
	var student models.Student
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&student).Error)
	assert.Nil(t, student.RoomID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
}

func TestLoginMeLogout(t *testing.T) {
	setupTestEnv(t)
	router := authRouter()

	w := performJSON(t, router, http.MethodPost, "/api/auth/signup",
		map[string]interface{}{"name": "Alice", "email": "alice@hostel.test", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]interface{}{"email": "alice@hostel.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, w)["error"])

	w = performJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]interface{}{"email": "ALICE@hostel.test", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Login successful", decodeBody(t, w)["message"])
	access := cookieNamed(w, middleware.AccessTokenCookie)
	refresh := cookieNamed(w, middleware.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	withCookies := func(method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	w = withCookies(http.MethodGet, "/api/auth/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", decodeBody(t, w)["error"])

	w = withCookies(http.MethodGet, "/api/auth/me", access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decodeBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "Alice", user["name"])
	assert.Contains(t, user, "student")

	// the bearer header works as well as the cookie
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = withCookies(http.MethodPost, "/api/auth/refresh", refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decodeBody(t, w)["accessToken"])

	w = withCookies(http.MethodPost, "/api/auth/logout", access, refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Logged out successfully", decodeBody(t, w)["message"])
	cleared := cookieNamed(w, middleware.AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0 || cleared.Value == "")

	w = withCookies(http.MethodGet, "/api/auth/me", access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", decodeBody(t, w)["error"])

	w = withCookies(http.MethodPost, "/api/auth/refresh", refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	setupTestEnv(t)
	router := authRouter()

	w := performJSON(t, router, http.MethodPost, "/api/auth/signup",
		map[string]interface{}{"name": "Alice", "email": "alice@hostel.test", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	access := decodeBody(t, w)["accessToken"].(string)

	w = performJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]interface{}{"refreshToken": access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, w)["error"])

	w = performJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]interface{}{"refreshToken": strings.Repeat("x", 10)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performJSON(t, router, http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Refresh token required", decodeBody(t, w)["error"])
}
