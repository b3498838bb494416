package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"worktime-backend/internal/targets"
)

type TargetHandler struct {
	Targets *targets.Service
	Log     *zap.Logger
}

func NewTargetHandler(svc *targets.Service, log *zap.Logger) *TargetHandler {
	return &TargetHandler{Targets: svc, Log: log}
}

type progressRequest struct {
	CurrentValue *float64 `json:"currentValue" binding:"required"`
}

func (h *TargetHandler) List(c *gin.Context) {
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}
	list, err := h.Targets.List(c.Request.Context(), workspaceID)
	if err != nil {
		respondError(c, h.Log, err, "failed to load targets")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TargetHandler) UpdateProgress(c *gin.Context) {
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currentValue is required"})
		return
	}

	target, err := h.Targets.UpdateProgress(c.Request.Context(), targetID, *req.CurrentValue)
	if err != nil {
		respondError(c, h.Log, err, "failed to update target")
		return
	}
	c.JSON(http.StatusOK, target)
}

// Sweep runs the status sweep on demand and returns what moved.
func (h *TargetHandler) Sweep(c *gin.Context) {
	report, err := h.Targets.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err, "failed to sweep targets")
		return
	}
	c.JSON(http.StatusOK, report)
}
