// Package attendance derives daily and monthly presence from completed time
// entries. Days are UTC date strings; no other timezone handling is done.
package attendance

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type Service struct {
	store *store.Store
	dir   store.Directory
	clock clock.Clock
	log   *zap.Logger
}

func NewService(st *store.Store, dir store.Directory, c clock.Clock, log *zap.Logger) *Service {
	return &Service{store: st, dir: dir, clock: c, log: log}
}

type MemberRecord struct {
	models.AttendanceRecord
	Name string `json:"name"`
}

type DailySummary struct {
	Total          int     `json:"total"`
	PresentCount   int     `json:"presentCount"`
	AbsentCount    int     `json:"absentCount"`
	AttendanceRate float64 `json:"attendanceRate"`
}

type Daily struct {
	WorkspaceID uuid.UUID      `json:"workspaceId"`
	Date        string         `json:"date"`
	Records     []MemberRecord `json:"records"`
	Summary     DailySummary   `json:"summary"`
}

// ComputeDailyAttendance recomputes one record per workspace member for the
// date. Re-running it with unchanged entries writes nothing.
func (s *Service) ComputeDailyAttendance(ctx context.Context, workspaceID uuid.UUID, date string) (*Daily, error) {
	from, to, err := dayBounds(date)
	if err != nil {
		return nil, err
	}
	members, err := s.dir.ResolveWorkspaceMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.CompletedEntries(ctx, workspaceID, nil, from, to)
	if err != nil {
		return nil, err
	}
	worked := map[uuid.UUID]int64{}
	contributing := map[uuid.UUID]models.StringArray{}
	for _, entry := range entries {
		worked[entry.UserID] += entry.Duration
		contributing[entry.UserID] = append(contributing[entry.UserID], entry.ID.String())
	}

	result := &Daily{WorkspaceID: workspaceID, Date: date, Records: make([]MemberRecord, 0, len(members))}
	for _, member := range members {
		ids := contributing[member.UserID]
		if ids == nil {
			ids = models.StringArray{}
		}
		record, err := s.upsert(ctx, member.UserID, workspaceID, date, worked[member.UserID], ids)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, MemberRecord{AttendanceRecord: *record, Name: member.Name})
		if record.IsPresent {
			result.Summary.PresentCount++
		}
	}
	result.Summary.Total = len(members)
	result.Summary.AbsentCount = result.Summary.Total - result.Summary.PresentCount
	result.Summary.AttendanceRate = rate(result.Summary.PresentCount, result.Summary.Total)

	s.log.Debug("daily attendance computed",
		zap.String("workspaceId", workspaceID.String()),
		zap.String("date", date),
		zap.Int("present", result.Summary.PresentCount),
		zap.Int("members", result.Summary.Total),
	)
	return result, nil
}

func (s *Service) upsert(ctx context.Context, userID, workspaceID uuid.UUID, date string, total int64, ids models.StringArray) (*models.AttendanceRecord, error) {
	present := total >= models.PresenceThresholdSeconds

	existing, err := s.store.FindAttendance(ctx, userID, workspaceID, date)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		record := &models.AttendanceRecord{
			UserID:          userID,
			WorkspaceID:     workspaceID,
			Date:            date,
			IsPresent:       present,
			TotalTimeWorked: total,
			TimeEntries:     ids,
		}
		err := s.store.CreateAttendance(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// another run inserted the key first; fall through and update theirs
		existing, err = s.store.FindAttendance(ctx, userID, workspaceID, date)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperr.Conflictf("attendance record changed concurrently")
		}
	}

	if existing.IsPresent == present && existing.TotalTimeWorked == total && existing.TimeEntries.Equal(ids) {
		return existing, nil
	}
	existing.IsPresent = present
	existing.TotalTimeWorked = total
	existing.TimeEntries = ids
	if err := s.store.UpdateAttendance(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

type DayBucket struct {
	Date           string  `json:"date"`
	Day            int     `json:"day"`
	DayName        string  `json:"dayName"`
	Total          int     `json:"total"`
	PresentCount   int     `json:"presentCount"`
	AbsentCount    int     `json:"absentCount"`
	AttendanceRate float64 `json:"attendanceRate"`
	TotalHours     float64 `json:"totalHours"`
}

type MonthlyStats struct {
	PresentDays        int     `json:"presentDays"`
	AbsentDays         int     `json:"absentDays"`
	AttendanceRate     float64 `json:"attendanceRate"`
	TotalHours         float64 `json:"totalHours"`
	AverageHoursPerDay float64 `json:"averageHoursPerDay"`
}

type Monthly struct {
	WorkspaceID uuid.UUID    `json:"workspaceId"`
	Month       string       `json:"month"`
	Members     int          `json:"members"`
	Days        []DayBucket  `json:"days"`
	Stats       MonthlyStats `json:"stats"`
}

// ComputeMonthlyAttendance buckets the month's stored records by day. With
// refresh set, every day up to today is recomputed from entries first.
func (s *Service) ComputeMonthlyAttendance(ctx context.Context, workspaceID uuid.UUID, month string, refresh bool) (*Monthly, error) {
	first, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	members, err := s.dir.ResolveWorkspaceMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	days := daysIn(first)
	if refresh {
		today := s.clock.Now().Format(dateLayout)
		for _, day := range days {
			date := day.Format(dateLayout)
			if date > today {
				break
			}
			if _, err := s.ComputeDailyAttendance(ctx, workspaceID, date); err != nil {
				return nil, err
			}
		}
	}

	records, err := s.store.AttendanceForMonth(ctx, workspaceID, nil, month)
	if err != nil {
		return nil, err
	}
	byDate := map[string][]models.AttendanceRecord{}
	for _, record := range records {
		byDate[record.Date] = append(byDate[record.Date], record)
	}

	result := &Monthly{WorkspaceID: workspaceID, Month: month, Members: len(members), Days: make([]DayBucket, 0, len(days))}
	var worked int64
	for _, day := range days {
		date := day.Format(dateLayout)
		bucket := DayBucket{Date: date, Day: day.Day(), DayName: dayNames[day.Weekday()]}
		var dayWorked int64
		for _, record := range byDate[date] {
			bucket.Total++
			if record.IsPresent {
				bucket.PresentCount++
			}
			dayWorked += record.TotalTimeWorked
		}
		bucket.AbsentCount = bucket.Total - bucket.PresentCount
		bucket.AttendanceRate = rate(bucket.PresentCount, bucket.Total)
		bucket.TotalHours = hours(dayWorked)
		result.Days = append(result.Days, bucket)

		result.Stats.PresentDays += bucket.PresentCount
		result.Stats.AbsentDays += bucket.AbsentCount
		worked += dayWorked
	}

	recordCount := len(records)
	result.Stats.AttendanceRate = rate(result.Stats.PresentDays, recordCount)
	result.Stats.TotalHours = hours(worked)
	if recordCount > 0 {
		result.Stats.AverageHoursPerDay = round(float64(worked)/3600/float64(recordCount), 2)
	}
	return result, nil
}

type UserDay struct {
	Date            string  `json:"date"`
	DayName         string  `json:"dayName"`
	Recorded        bool    `json:"recorded"`
	IsPresent       bool    `json:"isPresent"`
	TotalTimeWorked int64   `json:"totalTimeWorked"`
	Hours           float64 `json:"hours"`
}

type UserStats struct {
	PresentDays        int     `json:"presentDays"`
	AbsentDays         int     `json:"absentDays"`
	AttendanceRate     float64 `json:"attendanceRate"`
	TotalHours         float64 `json:"totalHours"`
	AverageHoursPerDay float64 `json:"averageHoursPerDay"`
}

type UserMonthly struct {
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Month       string    `json:"month"`
	Days        []UserDay `json:"days"`
	Stats       UserStats `json:"stats"`
}

// UserMonthlyAttendance lists one member's stored records for every day of the
// month. Days without a record are reported as not recorded.
func (s *Service) UserMonthlyAttendance(ctx context.Context, userID, workspaceID uuid.UUID, month string) (*UserMonthly, error) {
	first, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	members, err := s.dir.ResolveWorkspaceMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var member *store.Member
	for i := range members {
		if members[i].UserID == userID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil, apperr.NotFoundf("user is not a member of this workspace")
	}

	records, err := s.store.AttendanceForMonth(ctx, workspaceID, &userID, month)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]models.AttendanceRecord, len(records))
	for _, record := range records {
		byDate[record.Date] = record
	}

	result := &UserMonthly{UserID: userID, Name: member.Name, WorkspaceID: workspaceID, Month: month}
	var worked int64
	for _, day := range daysIn(first) {
		date := day.Format(dateLayout)
		row := UserDay{Date: date, DayName: dayNames[day.Weekday()]}
		if record, ok := byDate[date]; ok {
			row.Recorded = true
			row.IsPresent = record.IsPresent
			row.TotalTimeWorked = record.TotalTimeWorked
			row.Hours = hours(record.TotalTimeWorked)
			worked += record.TotalTimeWorked
			if record.IsPresent {
				result.Stats.PresentDays++
			} else {
				result.Stats.AbsentDays++
			}
		}
		result.Days = append(result.Days, row)
	}

	result.Stats.AttendanceRate = rate(result.Stats.PresentDays, len(records))
	result.Stats.TotalHours = hours(worked)
	if len(records) > 0 {
		result.Stats.AverageHoursPerDay = round(float64(worked)/3600/float64(len(records)), 2)
	}
	return result, nil
}

// dayBounds returns [date 00:00:00, date 23:59:59] in UTC.
func dayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Invalidf("date must be YYYY-MM-DD")
	}
	return day, day.Add(24*time.Hour - time.Second), nil
}

func parseMonth(month string) (time.Time, error) {
	first, err := time.ParseInLocation(monthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Invalidf("month must be YYYY-MM")
	}
	return first, nil
}

// daysIn lists every calendar day of the month starting at first.
func daysIn(first time.Time) []time.Time {
	last := first.AddDate(0, 1, -1).Day()
	days := make([]time.Time, 0, last)
	for d := 0; d < last; d++ {
		days = append(days, first.AddDate(0, 0, d))
	}
	return days
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 2)
}

func hours(seconds int64) float64 {
	return round(float64(seconds)/3600, 2)
}

func round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
