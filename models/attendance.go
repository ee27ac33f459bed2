package models

import (
	"time"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Attendance is one mark per student per calendar day. Date is normalized to
// midnight UTC so (StudentID, Date) identifies the day.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"studentId"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"date"`
	Status    string    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the Attendance model
func (Attendance) TableName() string {
	return "attendance"
}

// ValidAttendanceStatus reports whether s is present or absent
func ValidAttendanceStatus(s string) bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// NormalizeDay truncates t to midnight UTC of its own calendar day
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
