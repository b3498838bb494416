package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The directory tables are owned by the surrounding workspace and project
// services. This module only reads them.

type Workspace struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type WorkspaceMember struct {
	WorkspaceID uuid.UUID `gorm:"type:char(36);primaryKey" json:"workspaceId"`
	UserID      uuid.UUID `gorm:"type:char(36);primaryKey" json:"userId"`
	Role        string    `gorm:"size:50;not null;default:member" json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Project struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:char(36);index;not null" json:"workspaceId"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Task struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:char(36);index;not null" json:"workspaceId"`
	ProjectID   uuid.UUID `gorm:"type:char(36);index" json:"projectId"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
