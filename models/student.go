package models

import (
	"time"
)

// Student statuses
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
)

// Student extends a User with role "student" with hostel allocation data
type Student struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"uniqueIndex;not null" json:"userId"`
	User          *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RoomID        *uint        `gorm:"index" json:"roomId"` // nullable, unallocated when nil
	Room          *Room        `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Status        string       `gorm:"not null;default:'active'" json:"status"`
	AdmissionDate time.Time    `gorm:"not null" json:"admissionDate"`
	Attendance    []Attendance `gorm:"foreignKey:StudentID" json:"attendance,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for the Student model
func (Student) TableName() string {
	return "students"
}

// ValidStudentStatus reports whether s is active or inactive
func ValidStudentStatus(s string) bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}
