package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"worktime-backend/internal/models"
)

// FindAttendance returns the record for the key, or nil when none exists.
func (s *Store) FindAttendance(ctx context.Context, userID, workspaceID uuid.UUID, date string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := s.conn(ctx).
		Where("user_id = ? AND workspace_id = ? AND date = ?", userID, workspaceID, date).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading attendance: %w", err)
	}
	return &record, nil
}

// CreateAttendance inserts a record. A concurrent insert for the same key
// surfaces as gorm.ErrDuplicatedKey through the wrap.
func (s *Store) CreateAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	if err := s.conn(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating attendance: %w", err)
	}
	return nil
}

// UpdateAttendance overwrites the mutable fields only; id and createdAt stay.
func (s *Store) UpdateAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	err := s.conn(ctx).Model(record).Select("IsPresent", "TotalTimeWorked", "TimeEntries", "UpdatedAt").Updates(record).Error
	if err != nil {
		return fmt.Errorf("updating attendance: %w", err)
	}
	return nil
}

// AttendanceForMonth returns the workspace records whose date starts with the
// month prefix (YYYY-MM), ordered by date. A non-nil userID restricts to one user.
func (s *Store) AttendanceForMonth(ctx context.Context, workspaceID uuid.UUID, userID *uuid.UUID, month string) ([]models.AttendanceRecord, error) {
	query := s.conn(ctx).Where("workspace_id = ? AND date LIKE ?", workspaceID, month+"-%")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var records []models.AttendanceRecord
	if err := query.Order("date asc").Order("user_id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("loading monthly attendance: %w", err)
	}
	return records, nil
}
