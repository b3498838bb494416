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

func (s *Store) CreateTarget(ctx context.Context, target *models.Target) error {
	if err := s.conn(ctx).Create(target).Error; err != nil {
		return fmt.Errorf("creating target: %w", err)
	}
	return nil
}

func (s *Store) FindTarget(ctx context.Context, id uuid.UUID) (*models.Target, error) {
	var target models.Target
	if err := s.conn(ctx).First(&target, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("target not found")
		}
		return nil, fmt.Errorf("loading target: %w", err)
	}
	return &target, nil
}

func (s *Store) ListTargets(ctx context.Context, workspaceID uuid.UUID) ([]models.Target, error) {
	var targets []models.Target
	if err := s.conn(ctx).Where("workspace_id = ?", workspaceID).Order("deadline asc").Find(&targets).Error; err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return targets, nil
}

// SweepableTargets returns every target whose status can still move.
func (s *Store) SweepableTargets(ctx context.Context) ([]models.Target, error) {
	var targets []models.Target
	err := s.conn(ctx).
		Where("status IN ?", []string{models.TargetStatusActive, models.TargetStatusFailed}).
		Order("deadline asc").
		Find(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("loading targets: %w", err)
	}
	return targets, nil
}

// UpdateTargetStatus moves a target from one status to another only if the
// stored status is still from. It reports whether a row changed.
func (s *Store) UpdateTargetStatus(ctx context.Context, id uuid.UUID, from, to string, now time.Time) (bool, error) {
	result := s.conn(ctx).Model(&models.Target{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": now})
	if result.Error != nil {
		return false, fmt.Errorf("updating target status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) UpdateTargetProgress(ctx context.Context, id uuid.UUID, currentValue float64, now time.Time) error {
	result := s.conn(ctx).Model(&models.Target{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"current_value": currentValue, "updated_at": now})
	if result.Error != nil {
		return fmt.Errorf("updating target progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("target not found")
	}
	return nil
}
