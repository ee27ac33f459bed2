package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/kendall-kelly/hostel-management-api/models"
	"gorm.io/gorm"
)

// CreateUser inserts a user with the given role. The password column holds a
// placeholder; tests that log in hash their own.
func CreateUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@hostel.test", name),
		Password: "not-a-real-hash",
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return user
}

// CreateRoom inserts an empty room
func CreateRoom(t *testing.T, db *gorm.DB, number string, capacity int) *models.Room {
	t.Helper()

	room := &models.Room{
		RoomNumber: number,
		Type:       models.RoomTypeNonAC,
		Capacity:   capacity,
		Floor:      1,
	}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("Failed to create room %s: %v", number, err)
	}
	return room
}

// CreateStudent inserts a student-role user and an unallocated student record
func CreateStudent(t *testing.T, db *gorm.DB, name string) *models.Student {
	t.Helper()

	user := CreateUser(t, db, name, models.RoleStudent)
	student := &models.Student{
		UserID:        user.ID,
		Status:        models.StudentStatusActive,
		AdmissionDate: time.Now().UTC(),
	}
	if err := db.Create(student).Error; err != nil {
		t.Fatalf("Failed to create student %s: %v", name, err)
	}
	student.User = user
	return student
}

// ReloadRoom reads the room back from the database
func ReloadRoom(t *testing.T, db *gorm.DB, id uint) *models.Room {
	t.Helper()

	var room models.Room
	if err := db.First(&room, id).Error; err != nil {
		t.Fatalf("Failed to reload room %d: %v", id, err)
	}
	return &room
}

// ReloadStudent reads the student back from the database
func ReloadStudent(t *testing.T, db *gorm.DB, id uint) *models.Student {
	t.Helper()

	var student models.Student
	if err := db.First(&student, id).Error; err != nil {
		t.Fatalf("Failed to reload student %d: %v", id, err)
	}
	return &student
}

// AssignedCount counts the students that reference roomID
func AssignedCount(t *testing.T, db *gorm.DB, roomID uint) int {
	t.Helper()

	var count int64
	if err := db.Model(&models.Student{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count students in room %d: %v", roomID, err)
	}
	return int(count)
}
