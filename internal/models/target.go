package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TargetStatusActive    = "active"
	TargetStatusCompleted = "completed"
	TargetStatusFailed    = "failed"
)

// Target is a tracked goal whose status is recomputed by the batch sweep.
type Target struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	WorkspaceID  uuid.UUID  `gorm:"type:char(36);index;not null" json:"workspaceId"`
	UserID       *uuid.UUID `gorm:"type:char(36);index" json:"userId,omitempty"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	CurrentValue float64    `gorm:"not null;default:0" json:"currentValue"`
	TargetValue  float64    `gorm:"not null" json:"targetValue"`
	Deadline     time.Time  `gorm:"index;not null" json:"deadline"`
	Status       string     `gorm:"size:20;index;not null;default:active" json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (t *Target) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TargetStatusActive
	}
	return nil
}
