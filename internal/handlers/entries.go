package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/clock"
	"worktime-backend/internal/report"
	"worktime-backend/internal/store"
	"worktime-backend/internal/timer"
)

type EntryHandler struct {
	Timers    *timer.Service
	Directory store.Directory
	Clock     clock.Clock
	Log       *zap.Logger
}

func NewEntryHandler(timers *timer.Service, dir store.Directory, c clock.Clock, log *zap.Logger) *EntryHandler {
	return &EntryHandler{Timers: timers, Directory: dir, Clock: c, Log: log}
}

type manualEntryRequest struct {
	TaskID      string `json:"taskId" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	Description string `json:"description"`
}

type updateEntryRequest struct {
	Description *string `json:"description" binding:"required"`
}

func (h *EntryHandler) listInput(c *gin.Context) (timer.ListInput, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return timer.ListInput{}, false
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return timer.ListInput{}, false
	}

	in := timer.ListInput{UserID: userID, WorkspaceID: workspaceID}
	var err error
	if in.TaskID, err = optionalUUID(c.Query("taskId")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid taskId"})
		return in, false
	}
	if in.ProjectID, err = optionalUUID(c.Query("projectId")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid projectId"})
		return in, false
	}
	if in.From, err = parseTime(c.Query("from")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return in, false
	}
	if in.To, err = parseTime(c.Query("to")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return in, false
	}
	if limit := c.Query("limit"); limit != "" {
		if in.Limit, err = strconv.Atoi(limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return in, false
		}
	}
	return in, true
}

func (h *EntryHandler) List(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	entries, err := h.Timers.ListEntries(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Log, err, "failed to load time entries")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Calendar exports the same selection as List as an iCalendar file.
func (h *EntryHandler) Calendar(c *gin.Context) {
	in, ok := h.listInput(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	entries, err := h.Timers.ListEntries(ctx, in)
	if err != nil {
		respondError(c, h.Log, err, "failed to load time entries")
		return
	}

	projectIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		projectIDs = append(projectIDs, entry.ProjectID)
	}
	names, err := h.Directory.ProjectNames(ctx, projectIDs)
	if err != nil {
		respondError(c, h.Log, err, "failed to load projects")
		return
	}

	var buf bytes.Buffer
	if err := report.EntriesICS(&buf, entries, names, h.Clock.Now()); err != nil {
		respondError(c, h.Log, err, "failed to export time entries")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="time-entries.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	var req manualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId, startTime and endTime are required"})
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid taskId"})
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startTime"})
		return
	}
	end, err := parseTime(req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endTime"})
		return
	}

	entry, err := h.Timers.CreateManualEntry(c.Request.Context(), timer.ManualInput{
		UserID:      userID,
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		Start:       start,
		End:         end,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.Log, err, "failed to create time entry")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	entry, err := h.Timers.UpdateDescription(c.Request.Context(), userID, entryID, *req.Description)
	if err != nil {
		respondError(c, h.Log, err, "failed to update time entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.Timers.DeleteEntry(c.Request.Context(), userID, entryID); err != nil {
		respondError(c, h.Log, err, "failed to delete time entry")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
