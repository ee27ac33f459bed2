package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"gorm.io/gorm"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Role  *string `json:"role"`
}

// GetUsers handles GET /api/users - lists every account
func GetUsers(c *gin.Context) {
	db := config.GetDB()

	var users []models.User
	if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser handles GET /api/users/:id - staff may read anyone, others only
// themselves
func GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if id != userID && !middleware.CanReadAny(c) {
		forbidden(c, "You can only view your own profile")
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Preload("Student.Room").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser handles PUT /api/users/:id - updates name, email and phone.
// Roles are fixed at creation.
func UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondError(c, err)
		return
	}

	if req.Role != nil && *req.Role != user.Role {
		badRequest(c, "Role cannot be changed")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			badRequest(c, "Name cannot be empty")
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			badRequest(c, "Invalid email address")
			return
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = trimmed(req.Phone)
	}

	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			if services.IsDuplicateKey(err) {
				badRequest(c, "Email already in use")
				return
			}
			respondError(c, err)
			return
		}
	}

	if err := db.First(&user, id).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser handles DELETE /api/users/:id - removes the account, its student
// record and complaints
func DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if id == userID {
		badRequest(c, "You cannot delete your own account")
		return
	}

	ctx := c.Request.Context()
	ledger := services.NewOccupancyLedger(config.GetDB())
	imageKeys, err := ledger.DeleteUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	services.DeletePhotos(ctx, imageKeys)

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
