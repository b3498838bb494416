//go:build integration

package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/db"
	"worktime-backend/internal/lock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
	"worktime-backend/internal/testutil"
	"worktime-backend/internal/timer"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("worktime_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := db.Open(db.Options{Driver: "postgres", DSN: connStr})
	require.NoError(t, err)
	return database
}

func TestPostgresTimerLifecycleAndAttendance(t *testing.T) {
	database := openPostgres(t)
	f := testutil.Seed(t, database, 2)
	ctx := context.Background()

	c := clock.NewManual(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	st := store.New(database)
	dir := store.NewDirectory(database)
	svc := timer.NewService(st, dir, lock.NewLocal(), c, zap.NewNop())
	user := f.Users[0].ID

	started, err := svc.Start(ctx, timer.StartInput{UserID: user, WorkspaceID: f.Workspace.ID, TaskID: f.Task.ID})
	require.NoError(t, err)
	c.Advance(50 * time.Minute)
	entry, err := svc.Stop(ctx, timer.StopInput{UserID: user, WorkspaceID: f.Workspace.ID, TimerID: started.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3000, entry.Duration)

	resumed, err := svc.Resume(ctx, timer.ResumeInput{UserID: user, WorkspaceID: f.Workspace.ID, EntryID: entry.ID})
	require.NoError(t, err)
	c.Advance(10 * time.Minute)

	// concurrent stops race on the compare-and-delete; exactly one wins
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Stop(ctx, timer.StopInput{UserID: user, WorkspaceID: f.Workspace.ID, TimerID: resumed.ID}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	var stored models.TimeEntry
	require.NoError(t, database.First(&stored, "id = ?", entry.ID).Error)
	assert.EqualValues(t, 3600, stored.Duration)
	assert.False(t, stored.IsRunning)

	att := attendance.NewService(st, dir, c, zap.NewNop())
	daily, err := att.ComputeDailyAttendance(ctx, f.Workspace.ID, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, 2, daily.Summary.Total)
	assert.Equal(t, 1, daily.Summary.PresentCount)
	assert.Equal(t, 50.0, daily.Summary.AttendanceRate)

	again, err := att.ComputeDailyAttendance(ctx, f.Workspace.ID, "2024-05-06")
	require.NoError(t, err)
	var count int64
	require.NoError(t, database.Model(&models.AttendanceRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, daily.Summary, again.Summary)
}
