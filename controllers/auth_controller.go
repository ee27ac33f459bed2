package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"github.com/kendall-kelly/hostel-management-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLength = 6

// SignupRequest represents the request body for creating an account
type SignupRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest lets clients that do not keep cookies send the refresh token
// in the body
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Signup handles POST /api/auth/signup - registers a student account and
// its unallocated student record
func Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		badRequest(c, "Name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		badRequest(c, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		badRequest(c, "Password must be at least 6 characters")
		return
	}
	if req.Role != "" && req.Role != models.RoleStudent {
		if !models.ValidRole(req.Role) {
			badRequest(c, "Invalid role")
			return
		}
		forbidden(c, "Staff accounts cannot be created through signup")
		return
	}

	cfg := config.GetConfig()
	hash, err := utils.HashPassword(req.Password, cfg.BcryptCost)
	if err != nil {
		respondError(c, err)
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Phone:    trimmed(req.Phone),
		Role:     models.RoleStudent,
	}

	db := config.GetDB()
	err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		student := models.Student{
			UserID:        user.ID,
			Status:        models.StudentStatusActive,
			AdmissionDate: time.Now().UTC(),
		}
		if err := tx.Omit(clause.Associations).Create(&student).Error; err != nil {
			return err
		}
		user.Student = &student
		return nil
	})
	if err != nil {
		if services.IsDuplicateKey(err) {
			badRequest(c, "User already exists")
			return
		}
		respondError(c, err)
		return
	}

	access, refresh, ok := issueSession(c, &user)
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "User created successfully",
		"user":         user,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Login handles POST /api/auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, err)
		return
	}

	if !utils.VerifyPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	access, refresh, ok := issueSession(c, &user)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         user,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Refresh handles POST /api/auth/refresh - trades a refresh token for a new
// access token
func Refresh(c *gin.Context) {
	raw, _ := c.Cookie(middleware.RefreshTokenCookie)
	if raw == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token required"})
		return
	}

	cfg := config.GetConfig()
	tokens := services.NewTokenService(cfg)
	claims, err := tokens.ParseRefreshToken(raw)
	if err != nil {
		respondError(c, err)
		return
	}

	revoked, err := services.GetRevocationStore().IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		config.Warnf("Refresh token revocation check failed: %v", err)
	} else if revoked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	// the role is re-read so a deleted account cannot refresh
	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		respondError(c, err)
		return
	}

	access, err := tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	setTokenCookie(c, middleware.AccessTokenCookie, access)

	c.JSON(http.StatusOK, gin.H{
		"message":     "Token refreshed successfully",
		"accessToken": access.Token,
	})
}

// GetMe handles GET /api/auth/me - returns the authenticated user
func GetMe(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Preload("Student.Room").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout handles POST /api/auth/logout - revokes the current tokens and
// clears the cookies
func Logout(c *gin.Context) {
	ctx := c.Request.Context()
	store := services.GetRevocationStore()

	if tokenID, expiresAt := middleware.GetTokenID(c); tokenID != "" {
		if err := store.Revoke(ctx, tokenID, expiresAt); err != nil {
			config.Warnf("Failed to revoke access token: %v", err)
		}
	}

	if raw, _ := c.Cookie(middleware.RefreshTokenCookie); raw != "" {
		claims, err := services.NewTokenService(config.GetConfig()).ParseRefreshToken(raw)
		if err == nil && claims.ExpiresAt != nil {
			if err := store.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				config.Warnf("Failed to revoke refresh token: %v", err)
			}
		}
	}

	clearTokenCookie(c, middleware.AccessTokenCookie)
	clearTokenCookie(c, middleware.RefreshTokenCookie)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// issueSession signs both tokens for user and sets them as cookies. On failure
// it has already written the error response.
func issueSession(c *gin.Context, user *models.User) (string, string, bool) {
	tokens := services.NewTokenService(config.GetConfig())

	access, err := tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return "", "", false
	}
	refresh, err := tokens.IssueRefreshToken(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return "", "", false
	}

	setTokenCookie(c, middleware.AccessTokenCookie, access)
	setTokenCookie(c, middleware.RefreshTokenCookie, refresh)
	return access.Token, refresh.Token, true
}

func setTokenCookie(c *gin.Context, name string, token *services.IssuedToken) {
	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, token.Token, maxAge, "/", "", config.GetConfig().IsProduction(), true)
}

func clearTokenCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", config.GetConfig().IsProduction(), true)
}
