package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
	"worktime-backend/internal/testutil"
)

// Wednesday; the week starts on Sunday 2024-05-05.
var now = time.Date(2024, 5, 8, 15, 0, 0, 0, time.UTC)

func day(date string, hour int) time.Time {
	d, _ := time.Parse("2006-01-02", date)
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestDashboard(t *testing.T) {
	database := testutil.NewDB(t)
	f := testutil.Seed(t, database, 2)
	backend := f.AddTask(t, database, "Backend")
	user := f.Users[0].ID

	f.Entry(t, database, user, day("2024-05-08", 9), 7200)
	f.EntryOn(t, database, user, backend, day("2024-05-06", 10), 3600)
	f.Entry(t, database, user, day("2024-05-04", 9), 1800)
	f.Entry(t, database, user, day("2024-04-20", 9), 5400)
	f.Entry(t, database, user, day("2024-04-01", 9), 3600)
	f.Entry(t, database, f.Users[1].ID, day("2024-05-08", 9), 3600)

	st := store.New(database)
	svc := NewService(st, store.NewDirectory(database), clock.NewManual(now))
	ctx := context.Background()

	dash, err := svc.Dashboard(ctx, user, f.Workspace.ID, "")
	require.NoError(t, err)

	assert.Equal(t, TimeframeWeek, dash.Timeframe)
	assert.Equal(t, 2.0, dash.TodayHours)
	assert.Equal(t, 3.0, dash.WeekHours)
	assert.Equal(t, 3.5, dash.MonthHours)
	assert.Equal(t, 0.2, dash.AverageDailyHours)
	assert.Equal(t, 7.5, dash.Productivity)
	assert.Equal(t, 2, dash.EntryCount)
	assert.False(t, dash.IsRunning)

	require.Len(t, dash.Week, 7)
	assert.Equal(t, DayPoint{Date: "2024-05-05", DayName: "Sunday", Hours: 0}, dash.Week[0])
	assert.Equal(t, 1.0, dash.Week[1].Hours)
	assert.Equal(t, 2.0, dash.Week[3].Hours)
	assert.Equal(t, "Saturday", dash.Week[6].DayName)

	require.Len(t, dash.Projects, 2)
	assert.Equal(t, f.Project.Name, dash.Projects[0].Name)
	assert.Equal(t, 2.0, dash.Projects[0].Hours)
	assert.Equal(t, "Backend", dash.Projects[1].Name)

	monthly, err := svc.Dashboard(ctx, user, f.Workspace.ID, TimeframeMonth)
	require.NoError(t, err)
	assert.Equal(t, 3, monthly.EntryCount)
	assert.Equal(t, 2.5, monthly.Projects[0].Hours)

	today, err := svc.Dashboard(ctx, user, f.Workspace.ID, TimeframeToday)
	require.NoError(t, err)
	require.Len(t, today.Projects, 1)
	assert.Equal(t, f.Project.ID, today.Projects[0].ProjectID)
}

func TestDashboardFlagsRunningTimerWithoutCountingIt(t *testing.T) {
	database := testutil.NewDB(t)
	f := testutil.Seed(t, database, 1)
	user := f.Users[0].ID
	st := store.New(database)
	entryID := f.Entry(t, database, user, day("2024-05-08", 9), 600).ID
	require.NoError(t, st.CreateTimer(context.Background(), &models.ActiveTimer{
		UserID:           user,
		EntryID:          &entryID,
		WorkspaceID:      f.Workspace.ID,
		TaskID:           f.Task.ID,
		ProjectID:        f.Project.ID,
		StartTime:        now.Add(-10 * time.Minute),
		PreviousDuration: 60,
	}))

	dash, err := NewService(st, store.NewDirectory(database), clock.NewManual(now)).Dashboard(context.Background(), user, f.Workspace.ID, TimeframeToday)
	require.NoError(t, err)

	assert.True(t, dash.IsRunning)
	assert.Equal(t, int64(660), dash.RunningElapsed)
	assert.Equal(t, 0.2, dash.TodayHours)
}

func TestProductivityIsCapped(t *testing.T) {
	database := testutil.NewDB(t)
	f := testutil.Seed(t, database, 1)
	for d := 5; d <= 8; d++ {
		f.Entry(t, database, f.Users[0].ID, time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC), 12*3600)
	}

	dash, err := NewService(store.New(database), store.NewDirectory(database), clock.NewManual(now)).Dashboard(context.Background(), f.Users[0].ID, f.Workspace.ID, "week")
	require.NoError(t, err)

	assert.Equal(t, 48.0, dash.WeekHours)
	assert.Equal(t, 100.0, dash.Productivity)
}

func TestDashboardErrors(t *testing.T) {
	database := testutil.NewDB(t)
	f := testutil.Seed(t, database, 1)
	svc := NewService(store.New(database), store.NewDirectory(database), clock.NewManual(now))

	_, err := svc.Dashboard(context.Background(), f.Users[0].ID, f.Workspace.ID, "year")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, err = svc.Dashboard(context.Background(), f.Users[0].ID, uuid.New(), "week")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
