// Package stats builds the per-user time dashboard from completed entries.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/store"
)

const (
	TimeframeToday = "today"
	TimeframeWeek  = "week"
	TimeframeMonth = "month"

	weeklyBaselineHours = 40
	averageWindowDays   = 30
	topProjects         = 10
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type DayPoint struct {
	Date    string  `json:"date"`
	DayName string  `json:"dayName"`
	Hours   float64 `json:"hours"`
}

type ProjectHours struct {
	ProjectID uuid.UUID `json:"projectId"`
	Name      string    `json:"name"`
	Hours     float64   `json:"hours"`
	seconds   int64
}

type Dashboard struct {
	Timeframe         string         `json:"timeframe"`
	TodayHours        float64        `json:"todayHours"`
	WeekHours         float64        `json:"weekHours"`
	MonthHours        float64        `json:"monthHours"`
	AverageDailyHours float64        `json:"averageDailyHours"`
	Productivity      float64        `json:"productivity"`
	EntryCount        int            `json:"entryCount"`
	Week              []DayPoint     `json:"week"`
	Projects          []ProjectHours `json:"projects"`
	IsRunning         bool           `json:"isRunning"`
	RunningElapsed    int64          `json:"runningElapsed"`
}

type Service struct {
	store *store.Store
	dir   store.Directory
	clock clock.Clock
}

func NewService(st *store.Store, dir store.Directory, c clock.Clock) *Service {
	return &Service{store: st, dir: dir, clock: c}
}

// ParseTimeframe defaults an empty value to the week.
func ParseTimeframe(value string) (string, error) {
	switch value {
	case "":
		return TimeframeWeek, nil
	case TimeframeToday, TimeframeWeek, TimeframeMonth:
		return value, nil
	}
	return "", apperr.Invalidf("timeframe must be one of today, week, month")
}

// Dashboard is read-only. The running timer only sets the live flag; its
// session is not counted in any of the hour totals.
func (s *Service) Dashboard(ctx context.Context, userID, workspaceID uuid.UUID, timeframe string) (*Dashboard, error) {
	timeframe, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.ResolveWorkspaceMembers(ctx, workspaceID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	averageStart := today.AddDate(0, 0, -(averageWindowDays - 1))

	from := monthStart
	for _, start := range []time.Time{weekStart, averageStart} {
		if start.Before(from) {
			from = start
		}
	}
	entries, err := s.store.CompletedEntries(ctx, workspaceID, &userID, from, tomorrow.Add(-time.Second))
	if err != nil {
		return nil, err
	}

	windowStart := map[string]time.Time{TimeframeToday: today, TimeframeWeek: weekStart, TimeframeMonth: monthStart}[timeframe]

	var todaySecs, weekSecs, monthSecs, averageSecs int64
	daily := make([]int64, 7)
	perProject := map[uuid.UUID]int64{}
	dash := &Dashboard{Timeframe: timeframe}

	for _, entry := range entries {
		start := entry.StartTime.UTC()
		if !start.Before(today) {
			todaySecs += entry.Duration
		}
		if !start.Before(weekStart) {
			weekSecs += entry.Duration
			if day := int(start.Sub(weekStart) / (24 * time.Hour)); day < 7 {
				daily[day] += entry.Duration
			}
		}
		if !start.Before(monthStart) {
			monthSecs += entry.Duration
		}
		if !start.Before(averageStart) {
			averageSecs += entry.Duration
		}
		if !start.Before(windowStart) {
			perProject[entry.ProjectID] += entry.Duration
			dash.EntryCount++
		}
	}

	dash.TodayHours = hours(todaySecs)
	dash.WeekHours = hours(weekSecs)
	dash.MonthHours = hours(monthSecs)
	dash.AverageDailyHours = round1(float64(averageSecs) / 3600 / averageWindowDays)
	dash.Productivity = round1(math.Min(100, float64(weekSecs)/3600/weeklyBaselineHours*100))

	dash.Week = make([]DayPoint, 0, 7)
	for i, secs := range daily {
		day := weekStart.AddDate(0, 0, i)
		dash.Week = append(dash.Week, DayPoint{Date: day.Format("2006-01-02"), DayName: dayNames[day.Weekday()], Hours: hours(secs)})
	}

	dash.Projects, err = s.projectBreakdown(ctx, perProject)
	if err != nil {
		return nil, err
	}

	active, err := s.store.ActiveTimerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.WorkspaceID == workspaceID {
		dash.IsRunning = true
		dash.RunningElapsed = active.Elapsed(now)
	}
	return dash, nil
}

func (s *Service) projectBreakdown(ctx context.Context, perProject map[uuid.UUID]int64) ([]ProjectHours, error) {
	ids := make([]uuid.UUID, 0, len(perProject))
	for id := range perProject {
		ids = append(ids, id)
	}
	names, err := s.dir.ProjectNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	projects := make([]ProjectHours, 0, len(perProject))
	for id, secs := range perProject {
		projects = append(projects, ProjectHours{ProjectID: id, Name: names[id], Hours: hours(secs), seconds: secs})
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].seconds != projects[j].seconds {
			return projects[i].seconds > projects[j].seconds
		}
		return projects[i].ProjectID.String() < projects[j].ProjectID.String()
	})
	if len(projects) > topProjects {
		projects = projects[:topProjects]
	}
	return projects, nil
}

func hours(seconds int64) float64 {
	return round1(float64(seconds) / 3600)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
