package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/models"
)

const (
	DefaultEntryLimit = 50
	MaxEntryLimit     = 500
)

// EntryFilter narrows ListEntries. Zero values mean "any".
type EntryFilter struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TaskID      uuid.UUID
	ProjectID   uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
}

func (s *Store) CreateEntry(ctx context.Context, entry *models.TimeEntry) error {
	if err := s.conn(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating time entry: %w", err)
	}
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, entry *models.TimeEntry) error {
	if err := s.conn(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("saving time entry: %w", err)
	}
	return nil
}

// FindEntry returns the entry or nil when it does not exist.
func (s *Store) FindEntry(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.conn(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading time entry: %w", err)
	}
	return &entry, nil
}

// FindOwnedEntry returns the entry only when it belongs to the user, and to
// the workspace when one is given.
func (s *Store) FindOwnedEntry(ctx context.Context, id, userID, workspaceID uuid.UUID) (*models.TimeEntry, error) {
	query := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID)
	if workspaceID != uuid.Nil {
		query = query.Where("workspace_id = ?", workspaceID)
	}
	var entry models.TimeEntry
	if err := query.First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("time entry not found")
		}
		return nil, fmt.Errorf("loading time entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.TimeEntry{})
	if result.Error != nil {
		return false, fmt.Errorf("deleting time entry: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListEntries returns entries newest first.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]models.TimeEntry, error) {
	query := s.conn(ctx).Model(&models.TimeEntry{})
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.WorkspaceID != uuid.Nil {
		query = query.Where("workspace_id = ?", filter.WorkspaceID)
	}
	if filter.TaskID != uuid.Nil {
		query = query.Where("task_id = ?", filter.TaskID)
	}
	if filter.ProjectID != uuid.Nil {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if !filter.From.IsZero() {
		query = query.Where("start_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("start_time <= ?", filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	if limit > MaxEntryLimit {
		limit = MaxEntryLimit
	}

	var entries []models.TimeEntry
	if err := query.Order("start_time desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing time entries: %w", err)
	}
	return entries, nil
}

// CompletedEntries returns the non-running entries of a workspace whose start
// falls within [from, to], oldest first. A nil userID selects every user.
func (s *Store) CompletedEntries(ctx context.Context, workspaceID uuid.UUID, userID *uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	query := s.conn(ctx).
		Where("workspace_id = ? AND is_running = ? AND start_time >= ? AND start_time <= ?", workspaceID, false, from, to)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var entries []models.TimeEntry
	if err := query.Order("start_time asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("loading completed entries: %w", err)
	}
	return entries, nil
}
