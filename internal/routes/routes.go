package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/config"
	"worktime-backend/internal/handlers"
	"worktime-backend/internal/middleware"
	"worktime-backend/internal/ratelimit"
	"worktime-backend/internal/stats"
	"worktime-backend/internal/store"
	"worktime-backend/internal/targets"
	"worktime-backend/internal/timer"
)

// Deps is everything the HTTP layer is wired to.
type Deps struct {
	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Directory  store.Directory
	Limiter    ratelimit.Store
	Timers     *timer.Service
	Attendance *attendance.Service
	Stats      *stats.Service
	Targets    *targets.Service
}

func Register(router *gin.Engine, deps Deps) {
	cfg := deps.Config
	router.Use(corsMiddleware(cfg.AllowedOrigins()))
	router.Use(middleware.RequestLogger(deps.Log))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worktime-backend"})
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	timerHandler := handlers.NewTimerHandler(deps.Timers, deps.Log)
	entryHandler := handlers.NewEntryHandler(deps.Timers, deps.Directory, deps.Clock, deps.Log)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Attendance, deps.Clock, deps.Log)
	statsHandler := handlers.NewStatsHandler(deps.Stats, deps.Log)
	targetHandler := handlers.NewTargetHandler(deps.Targets, deps.Log)

	limited := middleware.RateLimit(deps.Limiter, "timer", cfg.RateLimitMax, cfg.RateLimitWindow, deps.Log)

	protected := router.Group("/api")
	protected.Use(middleware.AuthRequired(cfg.JwtSecret))
	{
		protected.GET("/timer/active", timerHandler.Active)

		workspace := protected.Group("/workspaces/:workspaceId")
		workspace.POST("/timer/start", limited, timerHandler.Start)
		workspace.POST("/timer/resume", limited, timerHandler.Resume)
		workspace.POST("/timer/stop", limited, timerHandler.Stop)

		workspace.GET("/time-entries", entryHandler.List)
		workspace.GET("/time-entries.ics", entryHandler.Calendar)
		workspace.POST("/time-entries", limited, entryHandler.Create)

		workspace.GET("/attendance/daily", attendanceHandler.Daily)
		workspace.GET("/attendance/monthly", attendanceHandler.Monthly)
		workspace.GET("/attendance/monthly.pdf", attendanceHandler.MonthlyPDF)
		workspace.GET("/attendance/users/:userId", attendanceHandler.UserMonthly)

		workspace.GET("/stats", statsHandler.Get)
		workspace.GET("/targets", targetHandler.List)

		protected.PATCH("/time-entries/:id", entryHandler.Update)
		protected.DELETE("/time-entries/:id", limited, entryHandler.Delete)

		protected.PATCH("/targets/:id/progress", targetHandler.UpdateProgress)
		protected.POST("/targets/sweep", targetHandler.Sweep)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
