package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worktime-backend/internal/clock"
	"worktime-backend/internal/ratelimit"
	"worktime-backend/internal/utils"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(handlers...)
	router.GET("/whoami", func(c *gin.Context) {
		userID, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID.String()})
	})
	return router
}

func get(router http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	router := newRouter(AuthRequired(secret))
	userID := uuid.New()

	token, err := utils.GenerateAccessToken(userID, "Ada", secret, 5)
	require.NoError(t, err)
	rec := get(router, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)

	forged, err := utils.GenerateAccessToken(userID, "Ada", "other-secret", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(router, forged).Code)

	expired, err := utils.GenerateAccessToken(userID, "Ada", secret, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(router, expired).Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewMemory(c)
	router := newRouter(AuthRequired(secret), RateLimit(limiter, "timer", 2, time.Minute, zap.NewNop()))

	alice, err := utils.GenerateAccessToken(uuid.New(), "", secret, 5)
	require.NoError(t, err)
	bob, err := utils.GenerateAccessToken(uuid.New(), "", secret, 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(router, alice).Code)
	assert.Equal(t, http.StatusOK, get(router, alice).Code)
	limited := get(router, alice)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, get(router, bob).Code)

	c.Advance(time.Minute)
	assert.Equal(t, http.StatusOK, get(router, alice).Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	router := newRouter(RequestLogger(zap.NewNop()))

	rec := get(router, "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
