package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeEntry is a tracked unit of work. Duration holds the accumulated seconds
// across every session applied to the entry.
type TimeEntry struct {
	ID          uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:char(36);index:idx_time_entries_user_ws;not null" json:"userId"`
	WorkspaceID uuid.UUID  `gorm:"type:char(36);index:idx_time_entries_user_ws;index:idx_time_entries_ws_start;not null" json:"workspaceId"`
	TaskID      uuid.UUID  `gorm:"type:char(36);index;not null" json:"taskId"`
	ProjectID   uuid.UUID  `gorm:"type:char(36);index" json:"projectId"`
	StartTime   time.Time  `gorm:"index:idx_time_entries_ws_start;not null" json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    int64      `gorm:"not null;default:0" json:"duration"`
	IsRunning   bool       `gorm:"not null;default:false" json:"isRunning"`
	ResumedAt   *time.Time `json:"resumedAt,omitempty"`
	Description string     `gorm:"size:1000" json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (e *TimeEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
