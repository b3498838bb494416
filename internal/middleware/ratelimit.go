package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"worktime-backend/internal/ratelimit"
)

// RateLimit allows max requests per window for each caller, keyed by user id
// when authenticated and by client IP otherwise. If the store is unreachable
// the request is let through.
func RateLimit(store ratelimit.Store, scope string, max int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":ip:" + c.ClientIP()
		if userID, ok := CurrentUserID(c); ok {
			key = scope + ":user:" + userID.String()
		}

		allowed, err := store.Allow(c.Request.Context(), key, max, window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
