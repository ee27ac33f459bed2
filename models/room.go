package models

import (
	"time"

	"gorm.io/gorm"
)

// Room types
const (
	RoomTypeAC    = "AC"
	RoomTypeNonAC = "Non-AC"
)

// Room is a physical hostel room. Occupied is owned by the occupancy ledger and
// always equals the number of students whose RoomID points here.
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomNumber string    `gorm:"uniqueIndex;not null" json:"roomNumber"`
	Type       string    `gorm:"not null" json:"type"`
	Capacity   int       `gorm:"not null;check:capacity > 0" json:"capacity"`
	Floor      int       `gorm:"not null" json:"floor"`
	Occupied   int       `gorm:"not null;default:0;check:occupied >= 0" json:"occupied"`
	FreeBeds   int       `gorm:"-" json:"available"`
	Students   []Student `gorm:"foreignKey:RoomID" json:"students,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the Room model
func (Room) TableName() string {
	return "rooms"
}

// Available returns the number of free beds
func (r Room) Available() int {
	if r.Occupied >= r.Capacity {
		return 0
	}
	return r.Capacity - r.Occupied
}

// AfterFind fills FreeBeds for responses
func (r *Room) AfterFind(tx *gorm.DB) error {
	r.FreeBeds = r.Available()
	return nil
}

// AfterCreate fills FreeBeds on a newly created room
func (r *Room) AfterCreate(tx *gorm.DB) error {
	r.FreeBeds = r.Available()
	return nil
}

// ValidRoomType reports whether t is AC or Non-AC
func ValidRoomType(t string) bool {
	return t == RoomTypeAC || t == RoomTypeNonAC
}
