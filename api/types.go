package api

import (
	"context"

	"taskflow-sync/domain"
	"taskflow-sync/notify"
	"taskflow-sync/store"
)

// Board abstracts the synchronized store for handlers.
type Board interface {
	Projects() []domain.Project
	Tasks() []domain.Task
	Sprints() []domain.Sprint
	ActiveProject() (domain.Project, bool)
	ActiveSprint() (domain.Sprint, bool)

	SwitchProject(ctx context.Context, ref domain.Ref)
	SwitchSprint(ctx context.Context, sprintID int64)
	CreateProject(ctx context.Context, name string) (domain.Project, error)
	DeleteProject(ctx context.Context, ref domain.Ref) error
	CreateTask(ctx context.Context, column domain.Status, title, description string, opts store.CreateTaskOptions) (domain.Task, error)
	UpdateTask(ctx context.Context, ref domain.Ref, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, ref domain.Ref) error
	RefreshTaskCounts(ctx context.Context)
}

// Notifications is the recent-notification buffer served to clients.
type Notifications interface {
	Recent() []notify.Notification
}
