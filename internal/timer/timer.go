// Package timer enforces the one-live-timer-per-user discipline and the
// duration accumulation rules for start, stop and resume.
//
// A user is either idle (no ActiveTimer) or running (exactly one). Start and
// resume always collapse a running timer back to idle first by finalizing its
// entry, then open a new session. Every transition runs under a per-user lock
// and inside one database transaction, and the entry is finalized before the
// timer row is removed.
package timer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/lock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
)

type Service struct {
	store *store.Store
	dir   store.Directory
	locks lock.Locker
	clock clock.Clock
	log   *zap.Logger
}

func NewService(st *store.Store, dir store.Directory, locks lock.Locker, c clock.Clock, log *zap.Logger) *Service {
	return &Service{store: st, dir: dir, locks: locks, clock: c, log: log}
}

type StartInput struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TaskID      uuid.UUID
	Description string
}

type ResumeInput struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	EntryID     uuid.UUID
}

type StopInput struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TimerID     uuid.UUID
}

// Start opens a fresh session on a task. A timer already running for the
// user is stopped first; that is not an error.
func (s *Service) Start(ctx context.Context, in StartInput) (*models.ActiveTimer, error) {
	task, err := s.dir.ResolveTask(ctx, in.TaskID, in.WorkspaceID)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, lockKey(in.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	var started *models.ActiveTimer
	var stopped *models.TimeEntry
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		now := s.clock.Now()

		var err error
		stopped, err = s.forceStop(ctx, tx, in.UserID, now)
		if err != nil {
			return err
		}

		started = &models.ActiveTimer{
			UserID:      in.UserID,
			WorkspaceID: in.WorkspaceID,
			TaskID:      task.ID,
			ProjectID:   task.ProjectID,
			Description: strings.TrimSpace(in.Description),
			StartTime:   now,
		}
		return tx.CreateTimer(ctx, started)
	})
	if err != nil {
		return nil, err
	}

	s.logForceStop(in.UserID, stopped)
	s.log.Info("timer started",
		zap.String("userId", in.UserID.String()),
		zap.String("timerId", started.ID.String()),
		zap.String("taskId", started.TaskID.String()),
	)
	return started, nil
}

// Resume continues an existing entry. The entry keeps its duration; the new
// session only adds its own elapsed time when it stops.
func (s *Service) Resume(ctx context.Context, in ResumeInput) (*models.ActiveTimer, error) {
	if _, err := s.store.FindOwnedEntry(ctx, in.EntryID, in.UserID, in.WorkspaceID); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, lockKey(in.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	var resumed *models.ActiveTimer
	var stopped *models.TimeEntry
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		now := s.clock.Now()

		var err error
		stopped, err = s.forceStop(ctx, tx, in.UserID, now)
		if err != nil {
			return err
		}

		// read again: the force-stop may have just finalized this very entry
		entry, err := tx.FindOwnedEntry(ctx, in.EntryID, in.UserID, in.WorkspaceID)
		if err != nil {
			return err
		}

		entry.IsRunning = true
		entry.EndTime = nil
		entry.ResumedAt = &now
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}

		entryID := entry.ID
		resumed = &models.ActiveTimer{
			UserID:           in.UserID,
			EntryID:          &entryID,
			WorkspaceID:      entry.WorkspaceID,
			TaskID:           entry.TaskID,
			ProjectID:        entry.ProjectID,
			Description:      entry.Description,
			StartTime:        now,
			PreviousDuration: entry.Duration,
		}
		return tx.CreateTimer(ctx, resumed)
	})
	if err != nil {
		return nil, err
	}

	s.logForceStop(in.UserID, stopped)
	s.log.Info("timer resumed",
		zap.String("userId", in.UserID.String()),
		zap.String("timerId", resumed.ID.String()),
		zap.String("entryId", in.EntryID.String()),
		zap.Int64("previousDuration", resumed.PreviousDuration),
	)
	return resumed, nil
}

// Stop finalizes the timer into its entry and removes it. A timer that is
// already gone, for example stopped by a racing start, is NotFound.
func (s *Service) Stop(ctx context.Context, in StopInput) (*models.TimeEntry, error) {
	release, err := s.locks.Acquire(ctx, lockKey(in.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *models.TimeEntry
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		current, err := tx.FindTimer(ctx, in.TimerID, in.UserID)
		if err != nil {
			return err
		}
		if in.WorkspaceID != uuid.Nil && current.WorkspaceID != in.WorkspaceID {
			return apperr.NotFoundf("active timer not found")
		}

		now := s.clock.Now()
		total := current.Elapsed(now)
		entry, err = s.finalize(ctx, tx, current, now, func(*models.TimeEntry) int64 { return total })
		if err != nil {
			return err
		}
		return s.removeTimer(ctx, tx, current, apperr.NotFoundf("active timer not found"))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("timer stopped",
		zap.String("userId", in.UserID.String()),
		zap.String("timerId", in.TimerID.String()),
		zap.String("entryId", entry.ID.String()),
		zap.Int64("duration", entry.Duration),
	)
	return entry, nil
}

// GetActive returns the user's live timer and its live total, or nil when idle.
func (s *Service) GetActive(ctx context.Context, userID uuid.UUID) (*models.ActiveTimer, int64, error) {
	current, err := s.store.ActiveTimerFor(ctx, userID)
	if err != nil || current == nil {
		return nil, 0, err
	}
	return current, current.Elapsed(s.clock.Now()), nil
}

// GetElapsed is read-only. Polling it never persists anything.
func (s *Service) GetElapsed(ctx context.Context, userID uuid.UUID) (int64, error) {
	_, elapsed, err := s.GetActive(ctx, userID)
	return elapsed, err
}

// forceStop collapses a running timer: the elapsed session is added to the
// linked entry, or becomes a new completed entry when there is no link.
func (s *Service) forceStop(ctx context.Context, tx *store.Store, userID uuid.UUID, now time.Time) (*models.TimeEntry, error) {
	current, err := tx.ActiveTimerFor(ctx, userID)
	if err != nil || current == nil {
		return nil, err
	}

	elapsed := models.SessionSeconds(current.StartTime, now)
	entry, err := s.finalize(ctx, tx, current, now, func(existing *models.TimeEntry) int64 {
		if existing == nil {
			return current.PreviousDuration + elapsed
		}
		return existing.Duration + elapsed
	})
	if err != nil {
		return nil, err
	}
	if err := s.removeTimer(ctx, tx, current, apperr.Conflictf("timer changed concurrently, try again")); err != nil {
		return nil, err
	}
	return entry, nil
}

// finalize writes the session into the timer's entry. total receives the
// linked entry, or nil when the timer has none (or it no longer exists) and
// a completed entry is created from the timer's own fields.
func (s *Service) finalize(ctx context.Context, tx *store.Store, current *models.ActiveTimer, now time.Time, total func(*models.TimeEntry) int64) (*models.TimeEntry, error) {
	if current.EntryID != nil {
		entry, err := tx.FindEntry(ctx, *current.EntryID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			end := now
			if end.Before(entry.StartTime) {
				end = entry.StartTime
			}
			entry.Duration = total(entry)
			entry.EndTime = &end
			entry.IsRunning = false
			if err := tx.SaveEntry(ctx, entry); err != nil {
				return nil, err
			}
			return entry, nil
		}
		s.log.Warn("timer references a missing entry, recording a new one",
			zap.String("timerId", current.ID.String()),
			zap.String("entryId", current.EntryID.String()),
		)
	}

	end := now
	if end.Before(current.StartTime) {
		end = current.StartTime
	}
	entry := &models.TimeEntry{
		UserID:      current.UserID,
		WorkspaceID: current.WorkspaceID,
		TaskID:      current.TaskID,
		ProjectID:   current.ProjectID,
		Description: current.Description,
		StartTime:   current.StartTime,
		EndTime:     &end,
		Duration:    total(nil),
		IsRunning:   false,
	}
	if err := tx.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) removeTimer(ctx context.Context, tx *store.Store, current *models.ActiveTimer, lost error) error {
	deleted, err := tx.DeleteTimer(ctx, current.ID, current.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return lost
	}
	return nil
}

func (s *Service) logForceStop(userID uuid.UUID, entry *models.TimeEntry) {
	if entry == nil {
		return
	}
	s.log.Info("running timer force-stopped",
		zap.String("userId", userID.String()),
		zap.String("entryId", entry.ID.String()),
		zap.Int64("duration", entry.Duration),
	)
}

func lockKey(userID uuid.UUID) string {
	return "timer:" + userID.String()
}
