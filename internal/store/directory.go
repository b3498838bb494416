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

// TaskRef is what the task service tells us about a task.
type TaskRef struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	ProjectID   uuid.UUID `json:"projectId"`
	ProjectName string    `json:"projectName"`
}

type Member struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// Directory answers the lookups this module needs from the workspace and
// task services.
type Directory interface {
	ResolveTask(ctx context.Context, taskID, workspaceID uuid.UUID) (TaskRef, error)
	ResolveWorkspaceMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error)
	ProjectNames(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]string, error)
	WorkspaceIDs(ctx context.Context) ([]uuid.UUID, error)
}

// GormDirectory reads the directory tables shared with the other services.
type GormDirectory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) ResolveTask(ctx context.Context, taskID, workspaceID uuid.UUID) (TaskRef, error) {
	var task models.Task
	err := d.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", taskID, workspaceID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TaskRef{}, apperr.NotFoundf("task not found")
		}
		return TaskRef{}, fmt.Errorf("loading task: %w", err)
	}

	ref := TaskRef{ID: task.ID, Title: task.Title, ProjectID: task.ProjectID}
	if task.ProjectID != uuid.Nil {
		var project models.Project
		err := d.db.WithContext(ctx).First(&project, "id = ?", task.ProjectID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return TaskRef{}, fmt.Errorf("loading project: %w", err)
		}
		ref.ProjectName = project.Name
	}
	return ref, nil
}

// ResolveWorkspaceMembers lists members ordered by user id. An unknown
// workspace is NotFound; a workspace without members is an empty list.
func (d *GormDirectory) ResolveWorkspaceMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	var workspace models.Workspace
	if err := d.db.WithContext(ctx).First(&workspace, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("workspace not found")
		}
		return nil, fmt.Errorf("loading workspace: %w", err)
	}

	var rows []struct {
		UserID uuid.UUID
		Name   string
	}
	err := d.db.WithContext(ctx).
		Table("workspace_members").
		Select("workspace_members.user_id AS user_id, COALESCE(users.name, '') AS name").
		Joins("LEFT JOIN users ON users.id = workspace_members.user_id").
		Where("workspace_members.workspace_id = ?", workspaceID).
		Order("workspace_members.user_id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading workspace members: %w", err)
	}

	members := make([]Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, Member{UserID: row.UserID, Name: row.Name})
	}
	return members, nil
}

func (d *GormDirectory) ProjectNames(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := map[uuid.UUID]string{}
	if len(projectIDs) == 0 {
		return names, nil
	}
	var projects []models.Project
	if err := d.db.WithContext(ctx).Where("id IN ?", projectIDs).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	for _, project := range projects {
		names[project.ID] = project.Name
	}
	return names, nil
}

func (d *GormDirectory) WorkspaceIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := d.db.WithContext(ctx).Model(&models.Workspace{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return ids, nil
}

// IsMember reports whether the user belongs to the workspace.
func IsMember(members []Member, userID uuid.UUID) bool {
	for _, member := range members {
		if member.UserID == userID {
			return true
		}
	}
	return false
}
