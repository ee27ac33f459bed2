package models

import (
	"time"
)

// Roles a user can hold
const (
	RoleAdmin   = "admin"
	RoleWarden  = "warden"
	RoleStudent = "student"
)

// User represents an account in the system (admin, warden or student)
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	Phone     *string   `json:"phone"`
	Role      string    `gorm:"not null;default:'student'" json:"role"` // "admin", "warden" or "student"
	Student   *Student  `gorm:"foreignKey:UserID" json:"student,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user is an admin-class actor
func (u User) IsStaff() bool {
	return IsStaffRole(u.Role)
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleWarden, RoleStudent:
		return true
	}
	return false
}

// IsStaffRole reports whether role is admin or warden
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleWarden
}
