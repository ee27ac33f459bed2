package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/services"
)

// MarkAttendanceRequest represents the request body for marking attendance
type MarkAttendanceRequest struct {
	StudentID optionalID `json:"studentId"`
	Date      string     `json:"date"`
	Status    string     `json:"status"`
}

// MarkAttendance handles POST /api/attendance/mark - records or overwrites a
// student's status for a day
func MarkAttendance(c *gin.Context) {
	var req MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.StudentID.Value == nil || req.Date == "" || req.Status == "" {
		badRequest(c, "All required fields must be provided")
		return
	}

	day, err := services.ParseAttendanceDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	attendance, err := services.MarkAttendance(c.Request.Context(), config.GetDB(), *req.StudentID.Value, day, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Attendance marked successfully",
		"attendance": attendance,
	})
}

// GetStudentAttendance handles GET /api/attendance/student/:id - optional
// inclusive startDate and endDate filters
func GetStudentAttendance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var window services.AttendanceRange
	if startDate := c.Query("startDate"); startDate != "" {
		from, err := services.ParseAttendanceDate(startDate)
		if err != nil {
			respondError(c, err)
			return
		}
		window.From = &from
	}
	if endDate := c.Query("endDate"); endDate != "" {
		to, err := services.ParseAttendanceDate(endDate)
		if err != nil {
			respondError(c, err)
			return
		}
		window.To = &to
	}

	ctx := c.Request.Context()
	db := config.GetDB()
	student, err := services.FindStudent(ctx, db, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ownsOrReadsAny(c, student.UserID) {
		forbidden(c, "You can only view your own attendance")
		return
	}

	records, err := services.ListAttendance(ctx, db, id, window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attendance": records,
		"statistics": services.ComputeAttendanceStatistics(records),
	})
}
