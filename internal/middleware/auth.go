package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"worktime-backend/internal/utils"
)

const (
	ContextUserID    = "userId"
	ContextUserName  = "userName"
	ContextRequestID = "requestId"
)

func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}

		userID, claims, err := utils.ParseAccessToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ContextUserID, userID)
		if claims.Name != "" {
			c.Set(ContextUserName, claims.Name)
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller set by AuthRequired.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
