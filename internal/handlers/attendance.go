package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/report"
)

type AttendanceHandler struct {
	Attendance *attendance.Service
	Clock      clock.Clock
	Log        *zap.Logger
}

func NewAttendanceHandler(svc *attendance.Service, c clock.Clock, log *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{Attendance: svc, Clock: c, Log: log}
}

// Daily defaults to today when no date is given.
func (h *AttendanceHandler) Daily(c *gin.Context) {
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	date := c.DefaultQuery("date", h.Clock.Now().Format("2006-01-02"))

	daily, err := h.Attendance.ComputeDailyAttendance(c.Request.Context(), workspaceID, date)
	if err != nil {
		respondError(c, h.Log, err, "failed to compute attendance")
		return
	}
	c.JSON(http.StatusOK, daily)
}

func (h *AttendanceHandler) Monthly(c *gin.Context) {
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	refresh, err := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refresh"})
		return
	}

	monthly, err := h.Attendance.ComputeMonthlyAttendance(c.Request.Context(), workspaceID, h.month(c), refresh)
	if err != nil {
		respondError(c, h.Log, err, "failed to compute monthly attendance")
		return
	}
	c.JSON(http.StatusOK, monthly)
}

func (h *AttendanceHandler) MonthlyPDF(c *gin.Context) {
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	month := h.month(c)

	monthly, err := h.Attendance.ComputeMonthlyAttendance(c.Request.Context(), workspaceID, month, false)
	if err != nil {
		respondError(c, h.Log, err, "failed to compute monthly attendance")
		return
	}
	out, err := report.MonthlyAttendancePDF(monthly)
	if err != nil {
		respondError(c, h.Log, err, "failed to render attendance report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.pdf"`, month))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (h *AttendanceHandler) UserMonthly(c *gin.Context) {
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	result, err := h.Attendance.UserMonthlyAttendance(c.Request.Context(), userID, workspaceID, h.month(c))
	if err != nil {
		respondError(c, h.Log, err, "failed to load user attendance")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AttendanceHandler) month(c *gin.Context) string {
	return c.DefaultQuery("month", h.Clock.Now().Format("2006-01"))
}
