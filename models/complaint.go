package models

import (
	"time"
)

// Complaint statuses
const (
	ComplaintStatusPending  = "pending"
	ComplaintStatusResolved = "resolved"
)

// ComplaintCategories lists the accepted complaint categories
var ComplaintCategories = []string{"electricity", "water", "cleaning", "food", "other"}

// Complaint is an issue raised by a user about the hostel
type Complaint struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"not null;index" json:"category"`
	Status      string    `gorm:"not null;default:'pending';index" json:"status"`
	ImageKey    *string   `json:"-"`                         // nullable, storage key of the attached photo
	ImageURL    *string   `gorm:"-" json:"imageUrl,omitempty"` // computed, presigned URL for the photo
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the Complaint model
func (Complaint) TableName() string {
	return "complaints"
}

// ValidComplaintCategory reports whether c is an accepted category
func ValidComplaintCategory(c string) bool {
	for _, category := range ComplaintCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ValidComplaintStatus reports whether s is pending or resolved
func ValidComplaintStatus(s string) bool {
	return s == ComplaintStatusPending || s == ComplaintStatusResolved
}
