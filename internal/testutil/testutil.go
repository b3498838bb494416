// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"worktime-backend/internal/db"
	"worktime-backend/internal/models"
)

var dbCounter atomic.Int64

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:worktime_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	database, err := db.Open(db.Options{Driver: "sqlite", DSN: name})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}

// Fixture is a workspace with one project, one task and the given members.
type Fixture struct {
	Workspace models.Workspace
	Project   models.Project
	Task      models.Task
	Users     []models.User
}

func Seed(t *testing.T, database *gorm.DB, memberCount int) Fixture {
	t.Helper()
	f := Fixture{
		Workspace: models.Workspace{Name: "Acme"},
	}
	require.NoError(t, database.Create(&f.Workspace).Error)

	f.Project = models.Project{WorkspaceID: f.Workspace.ID, Name: "Website"}
	require.NoError(t, database.Create(&f.Project).Error)

	f.Task = models.Task{WorkspaceID: f.Workspace.ID, ProjectID: f.Project.ID, Title: "Landing page"}
	require.NoError(t, database.Create(&f.Task).Error)

	for i := 0; i < memberCount; i++ {
		user := models.User{Email: fmt.Sprintf("member%d-%s@example.com", i, uuid.NewString()[:8]), Name: fmt.Sprintf("Member %d", i)}
		require.NoError(t, database.Create(&user).Error)
		require.NoError(t, database.Create(&models.WorkspaceMember{WorkspaceID: f.Workspace.ID, UserID: user.ID}).Error)
		f.Users = append(f.Users, user)
	}
	return f
}

// AddTask creates another task in a new project of the fixture's workspace.
func (f Fixture) AddTask(t *testing.T, database *gorm.DB, projectName string) models.Task {
	t.Helper()
	project := models.Project{WorkspaceID: f.Workspace.ID, Name: projectName}
	require.NoError(t, database.Create(&project).Error)
	task := models.Task{WorkspaceID: f.Workspace.ID, ProjectID: project.ID, Title: projectName + " task"}
	require.NoError(t, database.Create(&task).Error)
	return task
}

// Entry inserts a completed time entry for the user on the fixture's task.
func (f Fixture) Entry(t *testing.T, database *gorm.DB, userID uuid.UUID, start time.Time, seconds int64) models.TimeEntry {
	t.Helper()
	return f.EntryOn(t, database, userID, f.Task, start, seconds)
}

func (f Fixture) EntryOn(t *testing.T, database *gorm.DB, userID uuid.UUID, task models.Task, start time.Time, seconds int64) models.TimeEntry {
	t.Helper()
	end := start.UTC().Add(time.Duration(seconds) * time.Second)
	entry := models.TimeEntry{
		UserID:      userID,
		WorkspaceID: f.Workspace.ID,
		TaskID:      task.ID,
		ProjectID:   task.ProjectID,
		StartTime:   start.UTC(),
		EndTime:     &end,
		Duration:    seconds,
	}
	require.NoError(t, database.Create(&entry).Error)
	return entry
}
