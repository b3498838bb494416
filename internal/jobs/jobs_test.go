package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/lock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
	"worktime-backend/internal/targets"
	"worktime-backend/internal/testutil"
	"worktime-backend/internal/timer"
)

var now = time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, database *gorm.DB, interval time.Duration) *Runner {
	t.Helper()
	st := store.New(database)
	dir := store.NewDirectory(database)
	c := clock.NewManual(now)
	log := zap.NewNop()
	return NewRunner(
		attendance.NewService(st, dir, c, log),
		targets.NewService(st, c, log),
		timer.NewService(st, dir, lock.NewLocal(), c, log),
		dir, c, log, interval,
	)
}

func TestRunOnce(t *testing.T) {
	database := testutil.NewDB(t)
	first := testutil.Seed(t, database, 2)
	second := testutil.Seed(t, database, 1)
	first.Entry(t, database, first.Users[0].ID, now.Add(-3*time.Hour), 7200)
	second.Entry(t, database, second.Users[0].ID, now.Add(-26*time.Hour), 3600)
	overdue := models.Target{WorkspaceID: first.Workspace.ID, Title: "Q2", TargetValue: 10, Deadline: now.Add(-time.Hour)}
	require.NoError(t, database.Create(&overdue).Error)

	result := newRunner(t, database, time.Minute).RunOnce(context.Background())

	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Workspaces)
	assert.Equal(t, []string{"2024-05-07", "2024-05-08"}, result.AttendanceDates)
	assert.Equal(t, 4, result.AttendanceRuns)
	assert.Equal(t, 1, result.Targets.Updated)

	var records []models.AttendanceRecord
	require.NoError(t, database.Where("is_present = ?", true).Order("date").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-05-07", records[0].Date)
	assert.Equal(t, second.Users[0].ID, records[0].UserID)
	assert.Equal(t, "2024-05-08", records[1].Date)

	var total int64
	require.NoError(t, database.Model(&models.AttendanceRecord{}).Count(&total).Error)
	assert.Equal(t, int64(6), total)
}

func TestUntilNextAlignsToInterval(t *testing.T) {
	r := newRunner(t, testutil.NewDB(t), 15*time.Minute)

	assert.Equal(t, 5*time.Minute, r.untilNext(time.Date(2024, 5, 8, 10, 10, 0, 0, time.UTC)))
	assert.Equal(t, 15*time.Minute, r.untilNext(time.Date(2024, 5, 8, 10, 15, 0, 0, time.UTC)))
}

func TestRunStopsWithContext(t *testing.T) {
	r := newRunner(t, testutil.NewDB(t), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
