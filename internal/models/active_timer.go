package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveTimer is the single live session of a user. StartTime is when this
// session began, not when the linked entry was first started.
type ActiveTimer struct {
	ID               uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:char(36);uniqueIndex;not null" json:"userId"`
	EntryID          *uuid.UUID `gorm:"type:char(36);index" json:"entryId,omitempty"`
	WorkspaceID      uuid.UUID  `gorm:"type:char(36);index;not null" json:"workspaceId"`
	TaskID           uuid.UUID  `gorm:"type:char(36);not null" json:"taskId"`
	ProjectID        uuid.UUID  `gorm:"type:char(36)" json:"projectId"`
	Description      string     `gorm:"size:1000" json:"description"`
	StartTime        time.Time  `gorm:"not null" json:"startTime"`
	PreviousDuration int64      `gorm:"not null;default:0" json:"previousDuration"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (t *ActiveTimer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Elapsed returns the live total: previous sessions plus the current one.
func (t *ActiveTimer) Elapsed(now time.Time) int64 {
	return t.PreviousDuration + SessionSeconds(t.StartTime, now)
}

// SessionSeconds is the whole seconds between start and now, never negative.
func SessionSeconds(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / time.Second)
}
