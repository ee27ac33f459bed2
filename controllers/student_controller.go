package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"gorm.io/gorm"
)

// recentAttendanceLimit is how many attendance marks a student read includes
const recentAttendanceLimit = 30

// CreateStudentRequest represents the request body for creating a student
type CreateStudentRequest struct {
	UserID optionalID `json:"userId"`
	RoomID optionalID `json:"roomId"`
	Status *string    `json:"status"`
}

// UpdateStudentRequest represents the request body for updating a student.
// An explicit null or empty roomId unassigns the student.
type UpdateStudentRequest struct {
	RoomID optionalID `json:"roomId"`
	Status *string    `json:"status"`
}

func withStudentDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "email", "phone")
		}).
		Preload("Room")
}

// CreateStudent handles POST /api/students - creates the student record for a
// user and optionally allocates a room
func CreateStudent(c *gin.Context) {
	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.UserID.Value == nil {
		badRequest(c, "User ID is required")
		return
	}

	status := models.StudentStatusActive
	if req.Status != nil && *req.Status != "" {
		if !models.ValidStudentStatus(*req.Status) {
			badRequest(c, "Status must be active or inactive")
			return
		}
		status = *req.Status
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, *req.UserID.Value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, services.ErrUserNotFound)
			return
		}
		respondError(c, err)
		return
	}
	if user.Role != models.RoleStudent {
		badRequest(c, "User must have student role")
		return
	}

	ctx := c.Request.Context()
	student := models.Student{
		UserID:        user.ID,
		Status:        status,
		AdmissionDate: time.Now().UTC(),
	}
	ledger := services.NewOccupancyLedger(db)
	if err := ledger.CreateStudent(ctx, &student, req.RoomID.Value); err != nil {
		respondError(c, err)
		return
	}
	services.PublishRoomChange(ctx, services.RoomMove{StudentID: student.ID, To: student.RoomID})

	created, err := loadStudent(db, student.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Student created successfully",
		"student": created,
	})
}

// GetStudents handles GET /api/students - staff see every student, students
// only their own record
func GetStudents(c *gin.Context) {
	db := config.GetDB()
	query := withStudentDetails(db.Model(&models.Student{}))

	if !middleware.Can(c, middleware.ResourceStudents, middleware.ActionList) {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	var students []models.Student
	if err := query.Order("admission_date DESC").Find(&students).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetStudent handles GET /api/students/:id - includes the latest attendance
func GetStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var student models.Student
	err := withStudentDetails(db).
		Preload("Attendance", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("date DESC").Limit(recentAttendanceLimit)
		}).
		First(&student, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, services.ErrStudentNotFound)
			return
		}
		respondError(c, err)
		return
	}

	if !ownsOrReadsAny(c, student.UserID) {
		forbidden(c, "You can only view your own student record")
		return
	}

	c.JSON(http.StatusOK, gin.H{"student": student})
}

// UpdateStudent handles PUT /api/students/:id - status and room allocation
func UpdateStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	changes := services.StudentChanges{
		RoomSet: req.RoomID.Set,
		RoomID:  req.RoomID.Value,
	}
	if req.Status != nil && *req.Status != "" {
		changes.Status = req.Status
	}

	ctx := c.Request.Context()
	db := config.GetDB()
	move, err := services.NewOccupancyLedger(db).UpdateStudent(ctx, id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	services.PublishRoomChange(ctx, move)

	updated, err := loadStudent(db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Student updated successfully",
		"student": updated,
	})
}

// DeleteStudent handles DELETE /api/students/:id
func DeleteStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	move, err := services.NewOccupancyLedger(config.GetDB()).DeleteStudent(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	services.PublishRoomChange(ctx, move)

	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

func loadStudent(db *gorm.DB, id uint) (*models.Student, error) {
	var student models.Student
	if err := withStudentDetails(db).First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

// ownsOrReadsAny reports whether the caller is ownerID or may read any record
func ownsOrReadsAny(c *gin.Context, ownerID uint) bool {
	if middleware.CanReadAny(c) {
		return true
	}
	userID, err := middleware.GetUserID(c)
	return err == nil && userID == ownerID
}
