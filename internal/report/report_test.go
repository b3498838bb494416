package report

import (
	"bytes"
	"io"
	"testing"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/attendance"
	"worktime-backend/internal/models"
)

func TestMonthlyAttendancePDF(t *testing.T) {
	monthly := &attendance.Monthly{
		Month:   "2024-02",
		Members: 3,
		Days: []attendance.DayBucket{
			{Date: "2024-02-01", Day: 1, DayName: "Thursday", Total: 3, PresentCount: 2, AbsentCount: 1, AttendanceRate: 66.67, TotalHours: 14.5},
			{Date: "2024-02-02", Day: 2, DayName: "Friday"},
		},
		Stats: attendance.MonthlyStats{PresentDays: 2, AbsentDays: 1, AttendanceRate: 66.67, TotalHours: 14.5, AverageHoursPerDay: 4.83},
	}

	out, err := MonthlyAttendancePDF(monthly)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestEntriesICS(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	project := uuid.New()
	done := models.TimeEntry{ID: uuid.New(), ProjectID: project, StartTime: start, EndTime: &end, Duration: 5400, Description: "Standup"}
	running := models.TimeEntry{ID: uuid.New(), StartTime: start, IsRunning: true}

	var buf bytes.Buffer
	err := EntriesICS(&buf, []models.TimeEntry{done, running}, map[uuid.UUID]string{project: "Website"}, start)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, done.ID.String(), uid)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Website: Standup", summary)

	gotStart, err := events[0].DateTimeStart(nil)
	require.NoError(t, err)
	assert.True(t, start.Equal(gotStart))
	gotEnd, err := events[0].DateTimeEnd(nil)
	require.NoError(t, err)
	assert.True(t, end.Equal(gotEnd))
}

func TestEntriesICSWithNothingToExport(t *testing.T) {
	err := EntriesICS(io.Discard, nil, nil, time.Now())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "01:30:00", formatSeconds(5400))
	assert.Equal(t, "00:00:59", formatSeconds(59))
	assert.Equal(t, "26:00:01", formatSeconds(26*3600+1))
}
