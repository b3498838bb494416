package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"worktime-backend/internal/stats"
)

type StatsHandler struct {
	Stats *stats.Service
	Log   *zap.Logger
}

func NewStatsHandler(svc *stats.Service, log *zap.Logger) *StatsHandler {
	return &StatsHandler{Stats: svc, Log: log}
}

func (h *StatsHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := uuidParam(c, "workspaceId")
	if !ok {
		return
	}

	dash, err := h.Stats.Dashboard(c.Request.Context(), userID, workspaceID, c.Query("timeframe"))
	if err != nil {
		respondError(c, h.Log, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, dash)
}
