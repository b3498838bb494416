package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/middleware"
)

// respondError maps err onto its status code. Internal causes are logged
// here and never sent to the client.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		requestID, _ := c.Get(middleware.ContextRequestID)
		log.Error(fallback, zap.Error(err), zap.Any("requestId", requestID), zap.String("path", c.FullPath()))
	}
	_ = c.Error(err)
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err, fallback)})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return userID, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(value)
}

// parseTime accepts RFC3339, a few local layouts read as UTC, and bare dates.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.UTC(), nil
	}
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
