package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/hostel-management-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkAttendance records the student's status for day. A second mark for the
// same day overwrites the first.
func MarkAttendance(ctx context.Context, db *gorm.DB, studentID uint, day time.Time, status string) (*models.Attendance, error) {
	if !models.ValidAttendanceStatus(status) {
		return nil, Validation("Status must be present or absent")
	}
	day = models.NormalizeDay(day)

	db = db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Student{}).Where("id = ?", studentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if count == 0 {
		return nil, ErrStudentNotFound
	}

	record := models.Attendance{StudentID: studentID, Date: day, Status: status}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}

	var stored models.Attendance
	if err := db.Where("student_id = ? AND date = ?", studentID, day).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload attendance: %w", err)
	}
	return &stored, nil
}

// AttendanceRange bounds an attendance query; both ends are inclusive days
type AttendanceRange struct {
	From *time.Time
	To   *time.Time
}

// ListAttendance returns the student's marks within r, newest first
func ListAttendance(ctx context.Context, db *gorm.DB, studentID uint, r AttendanceRange) ([]models.Attendance, error) {
	query := db.WithContext(ctx).Where("student_id = ?", studentID)
	if r.From != nil {
		query = query.Where("date >= ?", models.NormalizeDay(*r.From))
	}
	if r.To != nil {
		query = query.Where("date <= ?", models.NormalizeDay(*r.To))
	}

	var records []models.Attendance
	if err := query.Order("date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	return records, nil
}

// FindStudent loads a student by ID with its user
func FindStudent(ctx context.Context, db *gorm.DB, studentID uint) (*models.Student, error) {
	var student models.Student
	if err := db.WithContext(ctx).Preload("User").First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	return &student, nil
}
