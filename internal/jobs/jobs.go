// Package jobs runs the periodic aggregation and repair sweeps.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"worktime-backend/internal/attendance"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/store"
	"worktime-backend/internal/targets"
	"worktime-backend/internal/timer"
)

type Runner struct {
	attendance *attendance.Service
	targets    *targets.Service
	timers     *timer.Service
	dir        store.Directory
	clock      clock.Clock
	log        *zap.Logger
	interval   time.Duration
}

func NewRunner(att *attendance.Service, tgt *targets.Service, timers *timer.Service, dir store.Directory, c clock.Clock, log *zap.Logger, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Runner{attendance: att, targets: tgt, timers: timers, dir: dir, clock: c, log: log, interval: interval}
}

type Result struct {
	Workspaces      int                 `json:"workspaces"`
	AttendanceDates []string            `json:"attendanceDates"`
	AttendanceRuns  int                 `json:"attendanceRuns"`
	Targets         targets.SweepReport `json:"targets"`
	Repair          timer.RepairReport  `json:"repair"`
	Errors          []string            `json:"errors"`
}

// RunOnce recomputes today's and yesterday's attendance for every workspace,
// sweeps targets and repairs stale timers. A failing step is logged and
// recorded; the remaining steps still run.
func (r *Runner) RunOnce(ctx context.Context) Result {
	now := r.clock.Now().UTC()
	result := Result{
		AttendanceDates: []string{now.AddDate(0, 0, -1).Format("2006-01-02"), now.Format("2006-01-02")},
		Errors:          []string{},
	}

	workspaces, err := r.dir.WorkspaceIDs(ctx)
	if err != nil {
		r.fail(&result, "listing workspaces", err)
	}
	result.Workspaces = len(workspaces)
	for _, workspaceID := range workspaces {
		for _, date := range result.AttendanceDates {
			if _, err := r.attendance.ComputeDailyAttendance(ctx, workspaceID, date); err != nil {
				r.fail(&result, "daily attendance", err, zap.String("workspaceId", workspaceID.String()), zap.String("date", date))
				continue
			}
			result.AttendanceRuns++
		}
	}

	if result.Targets, err = r.targets.Sweep(ctx); err != nil {
		r.fail(&result, "target sweep", err)
	}
	if result.Repair, err = r.timers.RepairStale(ctx); err != nil {
		r.fail(&result, "timer repair", err)
	}

	r.log.Info("scheduled sweep finished",
		zap.Int("workspaces", result.Workspaces),
		zap.Int("attendanceRuns", result.AttendanceRuns),
		zap.Int("targetsUpdated", result.Targets.Updated),
		zap.Int("timersRepaired", len(result.Repair.RemovedTimers)+len(result.Repair.RestoredEntries)),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

// Run sweeps once immediately and then on every interval boundary until ctx
// is done.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("sweep runner started", zap.Duration("interval", r.interval))
	for {
		r.RunOnce(ctx)

		wait := r.untilNext(time.Now())
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			r.log.Info("sweep runner stopped")
			return
		case <-t.C:
		}
	}
}

func (r *Runner) untilNext(now time.Time) time.Duration {
	next := now.Truncate(r.interval).Add(r.interval)
	return next.Sub(now)
}

func (r *Runner) fail(result *Result, step string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("step", step), zap.Error(err))
	r.log.Warn("sweep step failed", fields...)
	result.Errors = append(result.Errors, step+": "+err.Error())
}
