package timer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
)

type ListInput struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TaskID      uuid.UUID
	ProjectID   uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
}

type ManualInput struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TaskID      uuid.UUID
	Start       time.Time
	End         time.Time
	Description string
}

func (s *Service) ListEntries(ctx context.Context, in ListInput) ([]models.TimeEntry, error) {
	if !in.From.IsZero() && !in.To.IsZero() && in.To.Before(in.From) {
		return nil, apperr.Invalidf("to must not be before from")
	}
	if in.Limit < 0 {
		return nil, apperr.Invalidf("limit must not be negative")
	}
	return s.store.ListEntries(ctx, store.EntryFilter{
		UserID:      in.UserID,
		WorkspaceID: in.WorkspaceID,
		TaskID:      in.TaskID,
		ProjectID:   in.ProjectID,
		From:        in.From,
		To:          in.To,
		Limit:       in.Limit,
	})
}

// DeleteEntry removes one of the user's entries. If a timer is accumulating
// into it, the timer goes too so nothing points at a missing entry.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	release, err := s.locks.Acquire(ctx, lockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		entry, err := tx.FindOwnedEntry(ctx, entryID, userID, uuid.Nil)
		if err != nil {
			return err
		}
		if entry.IsRunning {
			if err := tx.DeleteTimersForEntry(ctx, entry.ID); err != nil {
				return err
			}
		}
		deleted, err := tx.DeleteEntry(ctx, entry.ID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFoundf("time entry not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("time entry deleted", zap.String("userId", userID.String()), zap.String("entryId", entryID.String()))
	return nil
}

func (s *Service) UpdateDescription(ctx context.Context, userID, entryID uuid.UUID, description string) (*models.TimeEntry, error) {
	release, err := s.locks.Acquire(ctx, lockKey(userID))
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *models.TimeEntry
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		entry, err = tx.FindOwnedEntry(ctx, entryID, userID, uuid.Nil)
		if err != nil {
			return err
		}
		entry.Description = strings.TrimSpace(description)
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if entry.IsRunning {
			return tx.SyncTimerDescription(ctx, entry.ID, entry.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateManualEntry records work that was not timed live.
func (s *Service) CreateManualEntry(ctx context.Context, in ManualInput) (*models.TimeEntry, error) {
	if in.Start.IsZero() || in.End.IsZero() {
		return nil, apperr.Invalidf("start and end are required")
	}
	start := in.Start.UTC().Truncate(time.Second)
	end := in.End.UTC().Truncate(time.Second)
	if end.Before(start) {
		return nil, apperr.Invalidf("end must not be before start")
	}
	if end.After(s.clock.Now()) {
		return nil, apperr.Invalidf("end cannot be in the future")
	}

	task, err := s.dir.ResolveTask(ctx, in.TaskID, in.WorkspaceID)
	if err != nil {
		return nil, err
	}

	entry := &models.TimeEntry{
		UserID:      in.UserID,
		WorkspaceID: in.WorkspaceID,
		TaskID:      task.ID,
		ProjectID:   task.ProjectID,
		StartTime:   start,
		EndTime:     &end,
		Duration:    models.SessionSeconds(start, end),
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
