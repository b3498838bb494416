package timer

import (
	"context"

	"go.uber.org/zap"

	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
)

type RepairReport struct {
	Checked         int      `json:"checked"`
	RemovedTimers   []string `json:"removedTimers"`
	RestoredEntries []string `json:"restoredEntries"`
	Failures        []string `json:"failures"`
}

// RepairStale heals timers left behind by a crash between finalizing an entry
// and deleting its timer, and entries that lost their running flag while a
// timer still accumulates into them. One bad timer never stops the sweep.
func (s *Service) RepairStale(ctx context.Context) (RepairReport, error) {
	report := RepairReport{RemovedTimers: []string{}, RestoredEntries: []string{}, Failures: []string{}}

	timers, err := s.store.ListTimers(ctx)
	if err != nil {
		return report, err
	}

	for i := range timers {
		current := timers[i]
		if current.EntryID == nil {
			continue
		}
		report.Checked++

		outcome, err := s.repairOne(ctx, current)
		if err != nil {
			s.log.Warn("timer repair failed", zap.String("timerId", current.ID.String()), zap.Error(err))
			report.Failures = append(report.Failures, current.ID.String())
			continue
		}
		switch outcome {
		case repairRemovedTimer:
			report.RemovedTimers = append(report.RemovedTimers, current.ID.String())
		case repairRestoredEntry:
			report.RestoredEntries = append(report.RestoredEntries, current.EntryID.String())
		}
	}

	if len(report.RemovedTimers) > 0 || len(report.RestoredEntries) > 0 {
		s.log.Info("stale timers repaired",
			zap.Int("removedTimers", len(report.RemovedTimers)),
			zap.Int("restoredEntries", len(report.RestoredEntries)),
		)
	}
	return report, nil
}

type repairOutcome int

const (
	repairNothing repairOutcome = iota
	repairRemovedTimer
	repairRestoredEntry
)

func (s *Service) repairOne(ctx context.Context, snapshot models.ActiveTimer) (repairOutcome, error) {
	release, err := s.locks.Acquire(ctx, lockKey(snapshot.UserID))
	if err != nil {
		return repairNothing, err
	}
	defer release()

	outcome := repairNothing
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		current, err := tx.ActiveTimerFor(ctx, snapshot.UserID)
		if err != nil || current == nil || current.ID != snapshot.ID {
			return err
		}
		entry, err := tx.FindEntry(ctx, *current.EntryID)
		if err != nil || entry == nil || entry.IsRunning {
			return err
		}

		if entry.EndTime != nil && !entry.EndTime.Before(current.StartTime) {
			// the session was already written into the entry
			if _, err := tx.DeleteTimer(ctx, current.ID, current.UserID); err != nil {
				return err
			}
			outcome = repairRemovedTimer
			return nil
		}

		entry.IsRunning = true
		entry.EndTime = nil
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		outcome = repairRestoredEntry
		return nil
	})
	return outcome, err
}
