package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/config"
	"worktime-backend/internal/lock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/ratelimit"
	"worktime-backend/internal/stats"
	"worktime-backend/internal/store"
	"worktime-backend/internal/targets"
	"worktime-backend/internal/testutil"
	"worktime-backend/internal/timer"
	"worktime-backend/internal/utils"
)

const secret = "routes-secret"

type harness struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	clock   *clock.Manual
	fixture testutil.Fixture
	token   string
}

func newHarness(t *testing.T, rateMax int) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := testutil.NewDB(t)
	fixture := testutil.Seed(t, database, 2)
	c := clock.NewManual(time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC))
	st := store.New(database)
	dir := store.NewDirectory(database)
	log := zap.NewNop()

	router := gin.New()
	Register(router, Deps{
		Config:     config.Config{JwtSecret: secret, RateLimitMax: rateMax, RateLimitWindow: time.Minute},
		Log:        log,
		Clock:      c,
		Directory:  dir,
		Limiter:    ratelimit.NewMemory(c),
		Timers:     timer.NewService(st, dir, lock.NewLocal(), c, log),
		Attendance: attendance.NewService(st, dir, c, log),
		Stats:      stats.NewService(st, dir, c),
		Targets:    targets.NewService(st, c, log),
	})

	token, err := utils.GenerateAccessToken(fixture.Users[0].ID, fixture.Users[0].Name, secret, 10)
	require.NoError(t, err)
	return &harness{t: t, db: database, router: router, clock: c, fixture: fixture, token: token}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) ws(path string) string {
	return "/api/workspaces/" + h.fixture.Workspace.ID.String() + path
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestTimerLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.do(http.MethodPost, h.ws("/timer/start"), gin.H{"taskId": h.fixture.Task.ID.String(), "description": "api work"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[models.ActiveTimer](t, rec)

	h.clock.Advance(100 * time.Second)
	rec = h.do(http.MethodGet, "/api/timer/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[struct {
		Timer   *models.ActiveTimer `json:"timer"`
		Elapsed int64               `json:"elapsed"`
	}](t, rec)
	require.NotNil(t, active.Timer)
	assert.Equal(t, started.ID, active.Timer.ID)
	assert.Equal(t, int64(100), active.Elapsed)

	rec = h.do(http.MethodPost, h.ws("/timer/stop"), gin.H{"timerId": started.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[models.TimeEntry](t, rec)
	assert.Equal(t, int64(100), entry.Duration)

	rec = h.do(http.MethodPost, h.ws("/timer/stop"), gin.H{"timerId": started.ID.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"active timer not found"}`, rec.Body.String())

	h.clock.Advance(400 * time.Second)
	rec = h.do(http.MethodPost, h.ws("/timer/resume"), gin.H{"entryId": entry.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resumed := decode[models.ActiveTimer](t, rec)
	assert.Equal(t, int64(100), resumed.PreviousDuration)

	h.clock.Advance(60 * time.Second)
	rec = h.do(http.MethodPost, h.ws("/timer/stop"), gin.H{"timerId": resumed.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(160), decode[models.TimeEntry](t, rec).Duration)

	rec = h.do(http.MethodGet, "/api/timer/active", nil)
	assert.JSONEq(t, `{"timer":null,"elapsed":0}`, rec.Body.String())
}

func TestTimerValidation(t *testing.T) {
	h := newHarness(t, 100)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, h.ws("/timer/start"), gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, h.ws("/timer/start"), gin.H{"taskId": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/workspaces/nope/timer/start", gin.H{"taskId": h.fixture.Task.ID.String()}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, h.ws("/timer/start"), gin.H{"taskId": uuid.NewString()}).Code)

	h.token = ""
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/timer/active", nil).Code)
}

func TestTimerRoutesAreRateLimited(t *testing.T) {
	h := newHarness(t, 2)
	body := gin.H{"taskId": h.fixture.Task.ID.String()}

	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, h.ws("/timer/start"), body).Code)
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, h.ws("/timer/start"), body).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, h.ws("/timer/start"), body).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/timer/active", nil).Code, "reads are not limited")
}

func TestEntryRoutes(t *testing.T) {
	h := newHarness(t, 100)

	rec := h.do(http.MethodPost, h.ws("/time-entries"), gin.H{
		"taskId":      h.fixture.Task.ID.String(),
		"startTime":   "2024-05-07T09:00:00Z",
		"endTime":     "2024-05-07T10:30:00Z",
		"description": "workshop",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.TimeEntry](t, rec)
	assert.Equal(t, int64(5400), created.Duration)

	rec = h.do(http.MethodPost, h.ws("/time-entries"), gin.H{
		"taskId":    h.fixture.Task.ID.String(),
		"startTime": "2024-05-07T10:00:00Z",
		"endTime":   "2024-05-07T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, h.ws("/time-entries?limit=10&from=2024-05-07"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TimeEntry](t, rec), 1)

	rec = h.do(http.MethodGet, h.ws("/time-entries.ics"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
	assert.Contains(t, rec.Body.String(), created.ID.String())

	rec = h.do(http.MethodPatch, "/api/time-entries/"+created.ID.String(), gin.H{"description": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[models.TimeEntry](t, rec).Description)

	rec = h.do(http.MethodDelete, "/api/time-entries/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, "/api/time-entries/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceAndStatsRoutes(t *testing.T) {
	h := newHarness(t, 100)
	h.fixture.Entry(t, h.db, h.fixture.Users[0].ID, time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC), 3600)

	rec := h.do(http.MethodGet, h.ws("/attendance/daily?date=2024-05-07"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	daily := decode[attendance.Daily](t, rec)
	assert.Equal(t, 1, daily.Summary.PresentCount)
	assert.Equal(t, 1, daily.Summary.AbsentCount)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, h.ws("/attendance/daily?date=07-05-2024"), nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/workspaces/"+uuid.NewString()+"/attendance/daily?date=2024-05-07", nil).Code)

	rec = h.do(http.MethodGet, h.ws("/attendance/monthly?month=2024-02"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[attendance.Monthly](t, rec).Days, 29)

	rec = h.do(http.MethodGet, h.ws("/attendance/monthly?refresh=true"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-05", decode[attendance.Monthly](t, rec).Month)

	rec = h.do(http.MethodGet, h.ws("/attendance/monthly.pdf?month=2024-05"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = h.do(http.MethodGet, h.ws("/attendance/users/"+h.fixture.Users[0].ID.String()+"?month=2024-05"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[attendance.UserMonthly](t, rec).Stats.PresentDays)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, h.ws("/attendance/users/"+uuid.NewString()), nil).Code)

	rec = h.do(http.MethodGet, h.ws("/stats?timeframe=week"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[stats.Dashboard](t, rec)
	assert.Equal(t, 1.0, dash.WeekHours)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, h.ws("/stats?timeframe=decade"), nil).Code)
}

func TestTargetRoutes(t *testing.T) {
	h := newHarness(t, 100)
	target := models.Target{WorkspaceID: h.fixture.Workspace.ID, Title: "Docs", TargetValue: 4, Deadline: h.clock.Now().Add(-time.Hour)}
	require.NoError(t, h.db.Create(&target).Error)

	rec := h.do(http.MethodPost, "/api/targets/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[targets.SweepReport](t, rec)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, models.TargetStatusFailed, report.Changes[0].To)

	rec = h.do(http.MethodPatch, "/api/targets/"+target.ID.String()+"/progress", gin.H{"currentValue": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.TargetStatusCompleted, decode[models.Target](t, rec).Status)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/api/targets/"+target.ID.String()+"/progress", gin.H{}).Code)

	rec = h.do(http.MethodGet, h.ws("/targets"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Target](t, rec), 1)
}
