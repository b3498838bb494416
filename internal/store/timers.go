package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/models"
)

// ActiveTimerFor returns the user's live timer, or nil when the user is idle.
func (s *Store) ActiveTimerFor(ctx context.Context, userID uuid.UUID) (*models.ActiveTimer, error) {
	var timer models.ActiveTimer
	err := s.conn(ctx).Where("user_id = ?", userID).First(&timer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active timer: %w", err)
	}
	return &timer, nil
}

func (s *Store) FindTimer(ctx context.Context, timerID, userID uuid.UUID) (*models.ActiveTimer, error) {
	var timer models.ActiveTimer
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", timerID, userID).First(&timer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("active timer not found")
		}
		return nil, fmt.Errorf("loading active timer: %w", err)
	}
	return &timer, nil
}

// CreateTimer inserts a timer. A second timer for the same user violates the
// unique index and is reported as a conflict.
func (s *Store) CreateTimer(ctx context.Context, timer *models.ActiveTimer) error {
	if err := s.conn(ctx).Create(timer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.Conflict, "another timer is already running", err)
		}
		return fmt.Errorf("creating active timer: %w", err)
	}
	return nil
}

// DeleteTimer removes the timer only if it still exists for the user. The
// boolean is false when somebody else already removed it.
func (s *Store) DeleteTimer(ctx context.Context, timerID, userID uuid.UUID) (bool, error) {
	result := s.conn(ctx).Where("id = ? AND user_id = ?", timerID, userID).Delete(&models.ActiveTimer{})
	if result.Error != nil {
		return false, fmt.Errorf("deleting active timer: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) DeleteTimersForEntry(ctx context.Context, entryID uuid.UUID) error {
	if err := s.conn(ctx).Where("entry_id = ?", entryID).Delete(&models.ActiveTimer{}).Error; err != nil {
		return fmt.Errorf("deleting timers for entry: %w", err)
	}
	return nil
}

func (s *Store) ListTimers(ctx context.Context) ([]models.ActiveTimer, error) {
	var timers []models.ActiveTimer
	if err := s.conn(ctx).Order("start_time asc").Find(&timers).Error; err != nil {
		return nil, fmt.Errorf("listing active timers: %w", err)
	}
	return timers, nil
}

// SyncTimerDescription copies an entry's new description onto the timer that
// is accumulating into it.
func (s *Store) SyncTimerDescription(ctx context.Context, entryID uuid.UUID, description string) error {
	err := s.conn(ctx).Model(&models.ActiveTimer{}).Where("entry_id = ?", entryID).Update("description", description).Error
	if err != nil {
		return fmt.Errorf("updating timer description: %w", err)
	}
	return nil
}
