package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/config"
	"worktime-backend/internal/db"
	"worktime-backend/internal/jobs"
	"worktime-backend/internal/lock"
	"worktime-backend/internal/logger"
	"worktime-backend/internal/ratelimit"
	"worktime-backend/internal/routes"
	"worktime-backend/internal/stats"
	"worktime-backend/internal/store"
	"worktime-backend/internal/targets"
	"worktime-backend/internal/timer"
)

var rootCmd = &cobra.Command{
	Use:           "worktime",
	Short:         "Time tracking and attendance backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("no-jobs", false, "Do not run the scheduled sweeps in this process")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the wired services shared by every command.
type app struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	redis      *redis.Client
	clock      clock.Clock
	store      *store.Store
	dir        store.Directory
	locks      lock.Locker
	limiter    ratelimit.Store
	timers     *timer.Service
	attendance *attendance.Service
	stats      *stats.Service
	targets    *targets.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger error: %w", err)
	}

	database, err := db.Open(db.Options{Driver: cfg.DbDriver, DSN: cfg.DbDsn, Verbose: !cfg.IsProduction() && cfg.LogLevel == "debug"})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: database, clock: clock.Real()}
	a.store = store.New(database)
	a.dir = store.NewDirectory(database)

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
		a.locks = lock.NewRedis(a.redis, cfg.TimerLockTTL, cfg.TimerLockWait)
		a.limiter = ratelimit.NewRedis(a.redis)
		log.Info("using redis for timer locks and rate limits", zap.String("addr", cfg.RedisAddr))
	} else {
		a.locks = lock.NewLocal()
		a.limiter = ratelimit.NewMemory(a.clock)
	}

	a.timers = timer.NewService(a.store, a.dir, a.locks, a.clock, log.Named("timer"))
	a.attendance = attendance.NewService(a.store, a.dir, a.clock, log.Named("attendance"))
	a.stats = stats.NewService(a.store, a.dir, a.clock)
	a.targets = targets.NewService(a.store, a.clock, log.Named("targets"))
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) runner() *jobs.Runner {
	return jobs.NewRunner(a.attendance, a.targets, a.timers, a.dir, a.clock, a.log.Named("jobs"), a.cfg.SweepInterval)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.Register(router, routes.Deps{
		Config:     a.cfg,
		Log:        a.log,
		Clock:      a.clock,
		Directory:  a.dir,
		Limiter:    a.limiter,
		Timers:     a.timers,
		Attendance: a.attendance,
		Stats:      a.stats,
		Targets:    a.targets,
	})

	if noJobs, _ := cmd.Flags().GetBool("no-jobs"); !noJobs {
		go a.runner().Run(ctx)
	}

	server := &http.Server{Addr: a.cfg.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() {
		a.log.Info("server listening", zap.String("addr", a.cfg.Addr))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.log.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
