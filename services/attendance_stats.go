package services

import (
	"math"
	"time"

	"github.com/kendall-kelly/hostel-management-api/models"
)

// AttendanceStatistics summarizes a student's attendance over a period
type AttendanceStatistics struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// ComputeAttendanceStatistics counts present and absent marks. Percentage is
// present/total*100 rounded to two decimals, and 0 when there are no records.
func ComputeAttendanceStatistics(records []models.Attendance) AttendanceStatistics {
	stats := AttendanceStatistics{Total: len(records)}
	for _, record := range records {
		switch record.Status {
		case models.AttendancePresent:
			stats.Present++
		case models.AttendanceAbsent:
			stats.Absent++
		}
	}

	if stats.Total == 0 {
		return stats
	}
	stats.Percentage = math.Round(float64(stats.Present)/float64(stats.Total)*10000) / 100
	return stats
}

// ParseAttendanceDate accepts a calendar day (2006-01-02) or an RFC 3339
// timestamp and returns the normalized day
func ParseAttendanceDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, Validation("Invalid date, expected YYYY-MM-DD")
	}
	return models.NormalizeDay(t), nil
}
