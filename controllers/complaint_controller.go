package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"gorm.io/gorm"
)

// CreateComplaintRequest represents the request body for filing a complaint.
// Multipart requests carry the same fields as form values plus an optional
// "image" file.
type CreateComplaintRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
}

// UpdateComplaintRequest represents the request body for a status change
type UpdateComplaintRequest struct {
	Status string `json:"status"`
}

func withUserSummary(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "email")
	})
}

// CreateComplaint handles POST /api/complaints - accepts JSON or multipart
// form data with an optional photo
func CreateComplaint(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req CreateComplaintRequest
	var image *multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid form data")
			return
		}
		image, err = c.FormFile("image")
		if err != nil {
			if !errors.Is(err, http.ErrMissingFile) {
				badRequest(c, "Invalid image upload")
				return
			}
			image = nil
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" || req.Category == "" {
		badRequest(c, "All required fields must be provided")
		return
	}
	if !models.ValidComplaintCategory(req.Category) {
		badRequest(c, "Invalid category")
		return
	}

	ctx := c.Request.Context()
	var imageKey *string
	if image != nil {
		photos := services.GetPhotoService()
		if photos == nil {
			badRequest(c, "Photo uploads are not enabled")
			return
		}
		key, err := photos.UploadPhoto(ctx, image)
		if err != nil {
			respondError(c, err)
			return
		}
		imageKey = &key
	}

	complaint := models.Complaint{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      models.ComplaintStatusPending,
		ImageKey:    imageKey,
	}

	db := config.GetDB()
	if err := db.Create(&complaint).Error; err != nil {
		if imageKey != nil {
			services.DeletePhotos(ctx, []string{*imageKey})
		}
		respondError(c, err)
		return
	}

	created, err := loadComplaint(db, complaint.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	services.AttachPhotoURLs(ctx, created)

	services.PublishEvent(ctx, services.QueueComplaintCreated, services.ComplaintCreatedEvent{
		ComplaintID: created.ID,
		UserID:      created.UserID,
		Title:       created.Title,
		Category:    created.Category,
		HasImage:    imageKey != nil,
		CreatedAt:   created.CreatedAt,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Complaint created successfully",
		"complaint": created,
	})
}

// GetComplaints handles GET /api/complaints - optional status and category
// filters. Students only see their own complaints.
func GetComplaints(c *gin.Context) {
	db := config.GetDB()
	query := withUserSummary(db.Model(&models.Complaint{}))

	if !middleware.CanReadAny(c) {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var complaints []models.Complaint
	if err := query.Order("created_at DESC").Find(&complaints).Error; err != nil {
		respondError(c, err)
		return
	}

	refs := make([]*models.Complaint, len(complaints))
	for i := range complaints {
		refs[i] = &complaints[i]
	}
	services.AttachPhotoURLs(c.Request.Context(), refs...)

	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// GetComplaint handles GET /api/complaints/:id
func GetComplaint(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	complaint, err := loadComplaint(config.GetDB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ownsOrReadsAny(c, complaint.UserID) {
		forbidden(c, "You can only view your own complaints")
		return
	}

	services.AttachPhotoURLs(c.Request.Context(), complaint)
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

// UpdateComplaint handles PUT /api/complaints/:id - owners may reopen their
// complaint, only staff may resolve it
func UpdateComplaint(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Status == "" {
		badRequest(c, "Status is required")
		return
	}
	if !models.ValidComplaintStatus(req.Status) {
		badRequest(c, "Status must be pending or resolved")
		return
	}

	db := config.GetDB()
	var complaint models.Complaint
	if err := db.First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}
		respondError(c, err)
		return
	}

	if !ownsOrReadsAny(c, complaint.UserID) {
		forbidden(c, "You can only update your own complaints")
		return
	}
	if req.Status == models.ComplaintStatusResolved &&
		!middleware.Can(c, middleware.ResourceComplaints, middleware.ActionResolve) {
		forbidden(c, "Only admins can resolve complaints")
		return
	}

	previous := complaint.Status
	if err := db.Model(&complaint).Update("status", req.Status).Error; err != nil {
		respondError(c, err)
		return
	}

	updated, err := loadComplaint(db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if previous != models.ComplaintStatusResolved && updated.Status == models.ComplaintStatusResolved {
		resolvedBy, _ := middleware.GetUserID(c)
		services.PublishEvent(ctx, services.QueueComplaintResolved, services.ComplaintResolvedEvent{
			ComplaintID: updated.ID,
			UserID:      updated.UserID,
			ResolvedBy:  resolvedBy,
			ResolvedAt:  time.Now().UTC(),
		})
	}
	services.AttachPhotoURLs(ctx, updated)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Complaint updated successfully",
		"complaint": updated,
	})
}

func loadComplaint(db *gorm.DB, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := withUserSummary(db).First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound("Complaint not found")
		}
		return nil, err
	}
	return &complaint, nil
}
