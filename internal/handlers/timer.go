package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/timer"
)

type TimerHandler struct {
	Timers *timer.Service
	Log    *zap.Logger
}

func NewTimerHandler(timers *timer.Service, log *zap.Logger) *TimerHandler {
	return &TimerHandler{Timers: timers, Log: log}
}

type startTimerRequest struct {
	TaskID      string `json:"taskId" binding:"required"`
	Description string `json:"description"`
}

type resumeTimerRequest struct {
	EntryID string `json:"entryId" binding:"required"`
}

type stopTimerRequest struct {
	TimerID string `json:"timerId" binding:"required"`
}

func (h *TimerHandler) Start(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId is required"})
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid taskId"})
		return
	}

	started, err := h.Timers.Start(c.Request.Context(), timer.StartInput{
		UserID:      userID,
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.Log, err, "failed to start timer")
		return
	}
	c.JSON(http.StatusCreated, started)
}

func (h *TimerHandler) Resume(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	var req resumeTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entryId is required"})
		return
	}
	entryID, err := uuid.Parse(req.EntryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entryId"})
		return
	}

	resumed, err := h.Timers.Resume(c.Request.Context(), timer.ResumeInput{UserID: userID, WorkspaceID: workspaceID, EntryID: entryID})
	if err != nil {
		respondError(c, h.Log, err, "failed to resume timer")
		return
	}
	c.JSON(http.StatusCreated, resumed)
}

func (h *TimerHandler) Stop(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	var req stopTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timerId is required"})
		return
	}
	timerID, err := uuid.Parse(req.TimerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timerId"})
		return
	}

	entry, err := h.Timers.Stop(c.Request.Context(), timer.StopInput{UserID: userID, WorkspaceID: workspaceID, TimerID: timerID})
	if err != nil {
		respondError(c, h.Log, err, "failed to stop timer")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Active returns {"timer": null} when the caller is idle.
func (h *TimerHandler) Active(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	active, elapsed, err := h.Timers.GetActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.Log, err, "failed to load active timer")
		return
	}
	if active == nil {
		c.JSON(http.StatusOK, gin.H{"timer": nil, "elapsed": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": active, "elapsed": elapsed})
}
