package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PresenceThresholdSeconds is the worked time needed on a day to count as present.
const PresenceThresholdSeconds = 3600

type AttendanceRecord struct {
	ID              uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          uuid.UUID   `gorm:"type:char(36);uniqueIndex:idx_attendance_user_ws_date;not null" json:"userId"`
	WorkspaceID     uuid.UUID   `gorm:"type:char(36);uniqueIndex:idx_attendance_user_ws_date;index:idx_attendance_ws_date;not null" json:"workspaceId"`
	Date            string      `gorm:"size:10;uniqueIndex:idx_attendance_user_ws_date;index:idx_attendance_ws_date;not null" json:"date"`
	IsPresent       bool        `gorm:"not null;default:false" json:"isPresent"`
	TotalTimeWorked int64       `gorm:"not null;default:0" json:"totalTimeWorked"`
	TimeEntries     StringArray `gorm:"type:text" json:"timeEntries"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
