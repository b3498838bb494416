// Package targets recomputes goal status from progress and deadline.
package targets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/clock"
	"worktime-backend/internal/models"
	"worktime-backend/internal/store"
)

const (
	ReasonReached  = "target value reached"
	ReasonOverdue  = "deadline passed before target value was reached"
	ReasonExtended = "deadline moved into the future and target not yet reached"
)

// Evaluate returns the status a target should have at now, and why. Reaching
// the target value wins over a passed deadline. changed is false when the
// stored status already matches.
func Evaluate(target models.Target, now time.Time) (status string, reason string, changed bool) {
	switch {
	case target.CurrentValue >= target.TargetValue:
		status, reason = models.TargetStatusCompleted, ReasonReached
	case now.After(target.Deadline) && target.Status == models.TargetStatusActive:
		status, reason = models.TargetStatusFailed, ReasonOverdue
	case target.Status == models.TargetStatusFailed && target.Deadline.After(now):
		status, reason = models.TargetStatusActive, ReasonExtended
	default:
		return target.Status, "", false
	}
	if status == target.Status {
		return status, "", false
	}
	return status, reason, true
}

type Change struct {
	TargetID uuid.UUID `json:"targetId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Reason   string    `json:"reason"`
}

type Failure struct {
	TargetID uuid.UUID `json:"targetId"`
	Error    string    `json:"error"`
}

type SweepReport struct {
	Checked  int       `json:"checked"`
	Updated  int       `json:"updated"`
	Changes  []Change  `json:"changes"`
	Failures []Failure `json:"failures"`
}

type Service struct {
	store *store.Store
	clock clock.Clock
	log   *zap.Logger
}

func NewService(st *store.Store, c clock.Clock, log *zap.Logger) *Service {
	return &Service{store: st, clock: c, log: log}
}

// Sweep re-evaluates every active or failed target and writes only the rows
// whose status moved. A failed write is reported and the sweep goes on.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Changes: []Change{}, Failures: []Failure{}}

	candidates, err := s.store.SweepableTargets(ctx)
	if err != nil {
		return report, err
	}
	now := s.clock.Now()

	for _, target := range candidates {
		report.Checked++
		status, reason, changed := Evaluate(target, now)
		if !changed {
			continue
		}

		updated, err := s.store.UpdateTargetStatus(ctx, target.ID, target.Status, status, now)
		if err != nil {
			s.log.Warn("target status update failed", zap.String("targetId", target.ID.String()), zap.Error(err))
			report.Failures = append(report.Failures, Failure{TargetID: target.ID, Error: err.Error()})
			continue
		}
		if !updated {
			// someone changed it since we read it; the next sweep sees the new state
			continue
		}
		report.Updated++
		report.Changes = append(report.Changes, Change{TargetID: target.ID, From: target.Status, To: status, Reason: reason})
	}

	if report.Updated > 0 || len(report.Failures) > 0 {
		s.log.Info("target sweep finished",
			zap.Int("checked", report.Checked),
			zap.Int("updated", report.Updated),
			zap.Int("failures", len(report.Failures)),
		)
	}
	return report, nil
}

func (s *Service) List(ctx context.Context, workspaceID uuid.UUID) ([]models.Target, error) {
	return s.store.ListTargets(ctx, workspaceID)
}

// UpdateProgress stores a new current value and applies the resulting status
// right away instead of waiting for the next sweep.
func (s *Service) UpdateProgress(ctx context.Context, targetID uuid.UUID, currentValue float64) (*models.Target, error) {
	if currentValue < 0 {
		return nil, apperr.Invalidf("currentValue must not be negative")
	}

	var target *models.Target
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		now := s.clock.Now()
		if err := tx.UpdateTargetProgress(ctx, targetID, currentValue, now); err != nil {
			return err
		}
		var err error
		target, err = tx.FindTarget(ctx, targetID)
		if err != nil {
			return err
		}
		if target.Status == models.TargetStatusCompleted {
			return nil
		}
		status, _, changed := Evaluate(*target, now)
		if !changed {
			return nil
		}
		if _, err := tx.UpdateTargetStatus(ctx, target.ID, target.Status, status, now); err != nil {
			return err
		}
		target.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}
