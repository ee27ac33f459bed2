package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OccupancyLedger keeps Room.Occupied equal to the number of students assigned
// to each room and never above Capacity. Every change to a student's room goes
// through it, and each operation commits or rolls back as a whole.
type OccupancyLedger struct {
	db *gorm.DB
}

// NewOccupancyLedger creates a ledger backed by db
func NewOccupancyLedger(db *gorm.DB) *OccupancyLedger {
	return &OccupancyLedger{db: db}
}

// RoomMove describes a student's allocation before and after an operation
type RoomMove struct {
	StudentID uint
	From      *uint
	To        *uint
}

// Changed reports whether the student ended up in a different room
func (m RoomMove) Changed() bool {
	if m.From == nil || m.To == nil {
		return m.From != m.To
	}
	return *m.From != *m.To
}

// StudentChanges is a partial update of a student. RoomSet distinguishes
// "leave the room alone" from "unassign" (RoomSet with a nil RoomID).
type StudentChanges struct {
	Status  *string
	RoomSet bool
	RoomID  *uint
}

// RoomChanges is a partial update of a room. Occupied is deliberately absent.
type RoomChanges struct {
	RoomNumber *string
	Type       *string
	Capacity   *int
	Floor      *int
}

// CreateStudent inserts student and, when roomID is set, allocates the room in
// the same transaction
func (l *OccupancyLedger) CreateStudent(ctx context.Context, student *models.Student, roomID *uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student.RoomID = nil
		if err := tx.Omit(clause.Associations).Create(student).Error; err != nil {
			if IsDuplicateKey(err) {
				return Conflict("Student already exists for this user")
			}
			return fmt.Errorf("failed to create student: %w", err)
		}
		if roomID == nil {
			return nil
		}
		if err := occupy(tx, student.ID, *roomID); err != nil {
			return err
		}
		student.RoomID = roomID
		return nil
	})
	observeLedger("create_student", err)
	return err
}

// Assign allocates an unallocated student to roomID. Assigning a student to
// the room it already holds is a no-op.
func (l *OccupancyLedger) Assign(ctx context.Context, studentID, roomID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return err
		}
		if student.RoomID != nil {
			if *student.RoomID == roomID {
				return nil
			}
			return ErrAlreadyAssigned
		}
		return occupy(tx, student.ID, roomID)
	})
	observeLedger("assign", err)
	return err
}

// Unassign releases the student's room. A student without a room is left
// untouched.
func (l *OccupancyLedger) Unassign(ctx context.Context, studentID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return err
		}
		return vacate(tx, student)
	})
	observeLedger("unassign", err)
	return err
}

// Reassign moves the student to roomID, or unassigns when roomID is nil. The
// release of the old room and the allocation of the new one are one
// transaction: on failure both rooms keep their counts.
func (l *OccupancyLedger) Reassign(ctx context.Context, studentID uint, roomID *uint) (RoomMove, error) {
	var move RoomMove
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return err
		}
		move, err = reassign(tx, student, roomID)
		return err
	})
	observeLedger("reassign", err)
	return move, err
}

// UpdateStudent applies status and room changes atomically
func (l *OccupancyLedger) UpdateStudent(ctx context.Context, studentID uint, changes StudentChanges) (RoomMove, error) {
	var move RoomMove
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return err
		}
		move = RoomMove{StudentID: student.ID, From: student.RoomID, To: student.RoomID}

		if changes.Status != nil {
			if !models.ValidStudentStatus(*changes.Status) {
				return Validation("Status must be active or inactive")
			}
			if err := tx.Model(&models.Student{}).Where("id = ?", student.ID).
				Update("status", *changes.Status).Error; err != nil {
				return fmt.Errorf("failed to update student status: %w", err)
			}
		}

		if changes.RoomSet {
			move, err = reassign(tx, student, changes.RoomID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	observeLedger("update_student", err)
	return move, err
}

// DeleteStudent releases the student's room, then removes the student and its
// attendance
func (l *OccupancyLedger) DeleteStudent(ctx context.Context, studentID uint) (RoomMove, error) {
	var move RoomMove
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return err
		}
		move = RoomMove{StudentID: student.ID, From: student.RoomID}
		return removeStudent(tx, student)
	})
	observeLedger("delete_student", err)
	return move, err
}

// DeleteUser removes a user together with its student record, attendance and
// complaints. It returns the storage keys of complaint photos so the caller can
// delete them once the transaction has committed.
func (l *OccupancyLedger) DeleteUser(ctx context.Context, userID uint) ([]string, error) {
	var imageKeys []string
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		var students []models.Student
		if err := lockForUpdate(tx).Where("user_id = ?", userID).Limit(1).Find(&students).Error; err != nil {
			return fmt.Errorf("failed to load student profile: %w", err)
		}
		if len(students) > 0 {
			if err := removeStudent(tx, &students[0]); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Complaint{}).
			Where("user_id = ? AND image_key IS NOT NULL", userID).
			Pluck("image_key", &imageKeys).Error; err != nil {
			return fmt.Errorf("failed to collect complaint photos: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Complaint{}).Error; err != nil {
			return fmt.Errorf("failed to delete complaints: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	observeLedger("delete_user", err)
	return imageKeys, err
}

// UpdateRoom applies changes to a room. Capacity may not drop below the
// number of students currently allocated.
func (l *OccupancyLedger) UpdateRoom(ctx context.Context, roomID uint, changes RoomChanges) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to load room: %w", err)
		}

		if changes.Capacity != nil && *changes.Capacity != room.Capacity {
			if *changes.Capacity < 1 {
				return Validation("Capacity must be at least 1")
			}
			res := tx.Model(&models.Room{}).
				Where("id = ? AND occupied <= ?", roomID, *changes.Capacity).
				Update("capacity", *changes.Capacity)
			if res.Error != nil {
				return fmt.Errorf("failed to update capacity: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrCapacityBelowUse
			}
		}

		updates := make(map[string]interface{})
		if changes.RoomNumber != nil {
			updates["room_number"] = *changes.RoomNumber
		}
		if changes.Type != nil {
			if !models.ValidRoomType(*changes.Type) {
				return Validation("Room type must be AC or Non-AC")
			}
			updates["type"] = *changes.Type
		}
		if changes.Floor != nil {
			if *changes.Floor < 0 {
				return Validation("Floor cannot be negative")
			}
			updates["floor"] = *changes.Floor
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Room{}).Where("id = ?", roomID).Updates(updates).Error; err != nil {
			if IsDuplicateKey(err) {
				return ErrDuplicateRoom
			}
			return fmt.Errorf("failed to update room: %w", err)
		}
		return nil
	})
	observeLedger("update_room", err)
	return err
}

// DeleteRoom removes an empty room. The delete is conditional on occupied = 0
// so an allocation racing with it cannot be lost.
func (l *OccupancyLedger) DeleteRoom(ctx context.Context, roomID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to load room: %w", err)
		}

		var assigned int64
		if err := tx.Model(&models.Student{}).Where("room_id = ?", roomID).Count(&assigned).Error; err != nil {
			return fmt.Errorf("failed to count room students: %w", err)
		}
		if assigned > 0 {
			return ErrRoomNotEmpty
		}

		res := tx.Where("id = ? AND occupied = 0", roomID).Delete(&models.Room{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete room: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRoomNotEmpty
		}
		return nil
	})
	observeLedger("delete_room", err)
	return err
}

// Reconcile recomputes every room's occupied counter from the student table
// and returns how many rooms were corrected
func (l *OccupancyLedger) Reconcile(ctx context.Context) (int, error) {
	corrected := 0
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counts []struct {
			RoomID uint
			Total  int
		}
		if err := tx.Model(&models.Student{}).
			Select("room_id, COUNT(*) AS total").
			Where("room_id IS NOT NULL").
			Group("room_id").
			Scan(&counts).Error; err != nil {
			return fmt.Errorf("failed to count allocations: %w", err)
		}
		actual := make(map[uint]int, len(counts))
		for _, c := range counts {
			actual[c.RoomID] = c.Total
		}

		var rooms []models.Room
		if err := tx.Find(&rooms).Error; err != nil {
			return fmt.Errorf("failed to load rooms: %w", err)
		}
		for _, room := range rooms {
			want := actual[room.ID]
			if room.Occupied == want {
				continue
			}
			if want > room.Capacity {
				config.Warnf("Room %s has %d students allocated but capacity %d", room.RoomNumber, want, room.Capacity)
			}
			if err := tx.Model(&models.Room{}).Where("id = ?", room.ID).Update("occupied", want).Error; err != nil {
				return fmt.Errorf("failed to correct room %d: %w", room.ID, err)
			}
			config.Infof("Reconciled room %s occupied %d -> %d", room.RoomNumber, room.Occupied, want)
			corrected++
		}
		return nil
	})
	observeLedger("reconcile", err)
	if err == nil {
		ledgerCorrections.Add(float64(corrected))
	}
	return corrected, err
}

// lockForUpdate takes a row lock on the selected rows until the transaction
// ends. SQLite has no row locks and the clause is dropped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// findStudent loads the student and locks its row, so two operations on the
// same student run one after the other
func findStudent(tx *gorm.DB, studentID uint) (*models.Student, error) {
	var student models.Student
	if err := lockForUpdate(tx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	return &student, nil
}

// occupy takes a bed in roomID for an unallocated student. The capacity check
// and the increment are a single conditional UPDATE.
func occupy(tx *gorm.DB, studentID, roomID uint) error {
	res := tx.Model(&models.Room{}).
		Where("id = ? AND occupied < capacity", roomID).
		Update("occupied", gorm.Expr("occupied + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment occupancy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&models.Room{}).Where("id = ?", roomID).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to load room: %w", err)
		}
		if exists == 0 {
			return ErrRoomNotFound
		}
		return ErrCapacityExceeded
	}

	res = tx.Model(&models.Student{}).
		Where("id = ? AND room_id IS NULL", studentID).
		Update("room_id", roomID)
	if res.Error != nil {
		return fmt.Errorf("failed to allocate room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStudentChanged
	}
	return nil
}

// vacate releases the student's bed, if any. The student row must still hold
// the room that was read, otherwise nothing is released.
func vacate(tx *gorm.DB, student *models.Student) error {
	if student.RoomID == nil {
		return nil
	}

	res := tx.Model(&models.Student{}).
		Where("id = ? AND room_id = ?", student.ID, *student.RoomID).
		Update("room_id", nil)
	if res.Error != nil {
		return fmt.Errorf("failed to release room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStudentChanged
	}

	res = tx.Model(&models.Room{}).
		Where("id = ? AND occupied > 0", *student.RoomID).
		Update("occupied", gorm.Expr("occupied - ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement occupancy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		config.Warnf("Room %d had no occupancy to release for student %d", *student.RoomID, student.ID)
	}
	student.RoomID = nil
	return nil
}

func reassign(tx *gorm.DB, student *models.Student, roomID *uint) (RoomMove, error) {
	move := RoomMove{StudentID: student.ID, From: student.RoomID, To: roomID}
	if !move.Changed() {
		return move, nil
	}
	if err := vacate(tx, student); err != nil {
		return move, err
	}
	if roomID == nil {
		return move, nil
	}
	if err := occupy(tx, student.ID, *roomID); err != nil {
		return move, err
	}
	student.RoomID = roomID
	return move, nil
}

func removeStudent(tx *gorm.DB, student *models.Student) error {
	if err := vacate(tx, student); err != nil {
		return err
	}
	if err := tx.Where("student_id = ?", student.ID).Delete(&models.Attendance{}).Error; err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if err := tx.Delete(&models.Student{}, student.ID).Error; err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return nil
}
