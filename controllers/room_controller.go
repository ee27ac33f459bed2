package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"gorm.io/gorm"
)

// RoomRequest represents the request body for creating or updating a room.
// Occupied is accepted so old clients keep working, but it is never applied.
type RoomRequest struct {
	RoomNumber *string `json:"roomNumber"`
	Type       *string `json:"type"`
	Capacity   flexInt `json:"capacity"`
	Floor      flexInt `json:"floor"`
	Occupied   flexInt `json:"occupied"`
}

// preloadStudentSummaries loads each room's students with a short user summary
func preloadStudentSummaries(db *gorm.DB) *gorm.DB {
	return db.Preload("Students.User", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "email")
	})
}

// CreateRoom handles POST /api/rooms
func CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	roomNumber := ""
	if req.RoomNumber != nil {
		roomNumber = strings.TrimSpace(*req.RoomNumber)
	}
	if roomNumber == "" || req.Type == nil || !req.Capacity.Set || !req.Floor.Set {
		badRequest(c, "All required fields must be provided")
		return
	}
	if !models.ValidRoomType(*req.Type) {
		badRequest(c, "Room type must be AC or Non-AC")
		return
	}
	if req.Capacity.Value < 1 {
		badRequest(c, "Capacity must be at least 1")
		return
	}
	if req.Floor.Value < 0 {
		badRequest(c, "Floor cannot be negative")
		return
	}

	room := models.Room{
		RoomNumber: roomNumber,
		Type:       *req.Type,
		Capacity:   req.Capacity.Value,
		Floor:      req.Floor.Value,
		Occupied:   0,
	}

	db := config.GetDB()
	if err := db.Create(&room).Error; err != nil {
		if services.IsDuplicateKey(err) {
			respondError(c, services.ErrDuplicateRoom)
			return
		}
		respondError(c, err)
		return
	}

	config.Infof("Room %s created with capacity %d", room.RoomNumber, room.Capacity)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    room,
	})
}

// GetRooms handles GET /api/rooms - optional floor and type filters
func GetRooms(c *gin.Context) {
	db := config.GetDB()
	query := preloadStudentSummaries(db.Model(&models.Room{}))

	if floor := c.Query("floor"); floor != "" {
		n, err := strconv.Atoi(floor)
		if err != nil {
			badRequest(c, "Floor must be a number")
			return
		}
		query = query.Where("floor = ?", n)
	}
	if roomType := c.Query("type"); roomType != "" {
		query = query.Where("type = ?", roomType)
	}

	var rooms []models.Room
	if err := query.Order("room_number ASC").Find(&rooms).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom handles GET /api/rooms/:id
func GetRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	room, err := loadRoom(config.GetDB(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// UpdateRoom handles PUT /api/rooms/:id - capacity changes go through the
// occupancy ledger
func UpdateRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Occupied.Set {
		config.Debugf("Ignoring occupied=%d on update of room %d", req.Occupied.Value, id)
	}

	changes := services.RoomChanges{
		Capacity: req.Capacity.Ptr(),
		Floor:    req.Floor.Ptr(),
	}
	// an empty type leaves the current one in place
	if req.Type != nil && strings.TrimSpace(*req.Type) != "" {
		changes.Type = req.Type
	}
	if req.RoomNumber != nil {
		number := strings.TrimSpace(*req.RoomNumber)
		if number == "" {
			badRequest(c, "Room number cannot be empty")
			return
		}
		changes.RoomNumber = &number
	}

	db := config.GetDB()
	ledger := services.NewOccupancyLedger(db)
	if err := ledger.UpdateRoom(c.Request.Context(), id, changes); err != nil {
		respondError(c, err)
		return
	}

	room, err := loadRoom(db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Room updated successfully",
		"room":    room,
	})
}

// DeleteRoom handles DELETE /api/rooms/:id - only empty rooms can be removed
func DeleteRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ledger := services.NewOccupancyLedger(config.GetDB())
	if err := ledger.DeleteRoom(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// ReconcileRooms handles POST /api/rooms/reconcile - recomputes every room's
// occupied count from its students
func ReconcileRooms(c *gin.Context) {
	ledger := services.NewOccupancyLedger(config.GetDB())
	corrected, err := ledger.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Room occupancy reconciled",
		"corrected": corrected,
	})
}

func loadRoom(db *gorm.DB, id uint) (*models.Room, error) {
	var room models.Room
	if err := preloadStudentSummaries(db).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}
