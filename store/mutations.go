package store

import (
	"context"
	"errors"
	"math/rand"

	"taskflow-sync/domain"
)

var projectColors = []string{"bg-primary", "bg-secondary", "bg-accent", "bg-destructive"}

// DetailError is implemented by errors that carry a server-provided
// detail message suitable for showing to the user.
type DetailError interface {
	error
	ErrorDetail() string
}

// failureDetail extracts the server-provided detail message when there is
// one, falling back to a generic retry hint.
func failureDetail(err error) string {
	var detailed DetailError
	if errors.As(err, &detailed) && detailed.ErrorDetail() != "" {
		return detailed.ErrorDetail()
	}
	return "Please try again"
}

// SwitchProject makes the matching loaded project active and fetches its
// tasks. Unknown references are a silent no-op.
func (s *Store) SwitchProject(ctx context.Context, ref domain.Ref) {
	s.mu.Lock()
	var project domain.Project
	found := false
	for _, p := range s.projects {
		if p.Ref.Equal(ref) {
			project, found = p, true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.activeProject = ref
	s.mu.Unlock()

	s.notifier.Notify("Project switched", "Now viewing "+project.Name)
	if ref.Confirmed() {
		_ = s.FetchTasks(ctx, ref.ID)
	}
}

// SwitchSprint makes the matching sprint active and fetches its tasks.
func (s *Store) SwitchSprint(ctx context.Context, sprintID int64) {
	s.mu.Lock()
	found := false
	for _, sp := range s.sprints {
		if sp.ID == sprintID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.activeSprint = sprintID
	s.mu.Unlock()

	_ = s.FetchSprintTasks(ctx, sprintID)
}

// CreateProject inserts an optimistic project at the front of the mirror
// and makes it active, then reconciles with the server: the temporary
// record is replaced in place on success and removed on failure, with the
// previous selection restored.
func (s *Store) CreateProject(ctx context.Context, name string) (domain.Project, error) {
	optimistic := domain.Project{
		Ref:   domain.NewTempRef("tmp-"),
		Name:  name,
		Color: projectColors[rand.Intn(len(projectColors))],
	}

	s.mu.Lock()
	prevActive := s.activeProject
	s.projects = append([]domain.Project{optimistic}, s.projects...)
	s.activeProject = optimistic.Ref
	s.mu.Unlock()

	created, err := s.api.CreateProject(ctx, name, optimistic.Color)
	if err != nil {
		s.mu.Lock()
		s.removeProjectLocked(optimistic.Ref)
		if s.activeProject.Equal(optimistic.Ref) {
			s.activeProject = prevActive
		}
		s.mu.Unlock()
		s.notifier.Notify("Failed to create project", failureDetail(err))
		return domain.Project{}, err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.projects {
		if s.projects[i].Ref.Equal(optimistic.Ref) {
			s.projects[i] = created
			replaced = true
			break
		}
	}
	if !replaced {
		s.projects = append([]domain.Project{created}, s.projects...)
	}
	s.activeProject = created.Ref
	s.mu.Unlock()

	s.notifier.Notify("Project created", created.Name+" has been added")
	s.saveSnapshot(ctx)
	_ = s.FetchTasks(ctx, created.Ref.ID)
	return created, nil
}

// DeleteProject removes the project from the mirror immediately and
// issues the server delete. Failure restores the previous project list
// and active selection in full; success also drops the project's tasks.
func (s *Store) DeleteProject(ctx context.Context, ref domain.Ref) error {
	s.mu.Lock()
	if !s.containsProjectLocked(ref) {
		s.mu.Unlock()
		return ErrUnknownProject
	}
	prevProjects := make([]domain.Project, len(s.projects))
	copy(prevProjects, s.projects)
	prevActive := s.activeProject
	name := s.removeProjectLocked(ref)
	if s.activeProject.Equal(ref) {
		s.activeProject = domain.Ref{}
	}
	s.mu.Unlock()

	// A temporary project only ever existed locally.
	if !ref.Confirmed() {
		s.notifier.Notify("Project deleted", name+" has been removed")
		return nil
	}

	if err := s.api.DeleteProject(ctx, ref.ID); err != nil {
		s.mu.Lock()
		s.projects = prevProjects
		s.activeProject = prevActive
		s.mu.Unlock()
		s.notifier.Notify("Failed to delete project", failureDetail(err))
		return err
	}

	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ProjectID != ref.ID {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()

	s.notifier.Notify("Project deleted", name+" has been removed")
	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return nil
}

// CreateTaskOptions carries the optional arguments of CreateTask.
type CreateTaskOptions struct {
	// Project overrides the active project as the task's owner.
	Project domain.Ref
	Type    domain.IssueType
	DueDate string
	Sprint  int64
}

// CreateTask inserts an optimistic task and reconciles with the server.
// Tasks are never created against a project the server has not yet
// confirmed; those calls abort before any state change.
func (s *Store) CreateTask(ctx context.Context, column domain.Status, title, description string, opts CreateTaskOptions) (domain.Task, error) {
	s.mu.Lock()
	project := opts.Project
	if project.IsZero() {
		project = s.activeProject
	}
	if project.IsZero() {
		s.mu.Unlock()
		s.notifier.Notify("No project selected", "Select or create a project first.")
		return domain.Task{}, ErrNoProject
	}
	if !project.Confirmed() {
		s.mu.Unlock()
		s.notifier.Notify("Project is being created", "Please wait until the project is saved, then try again.")
		return domain.Task{}, ErrProjectPending
	}

	status := column
	if status == "" {
		status = domain.StatusTodo
	}
	issueType := opts.Type
	if issueType == "" {
		issueType = domain.TypeTask
	}
	optimistic := domain.Task{
		Ref:         domain.NewTempRef("tmp-task-"),
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    domain.PriorityMedium,
		DueDate:     opts.DueDate,
		ProjectID:   project.ID,
		SprintID:    opts.Sprint,
		Tags:        []string{},
		Assignees:   []string{},
		Type:        issueType,
	}
	s.tasks = append(s.tasks, optimistic)
	s.mu.Unlock()

	created, err := s.api.CreateTask(ctx, optimistic)
	if err != nil {
		s.mu.Lock()
		s.removeTaskLocked(optimistic.Ref)
		s.mu.Unlock()
		s.notifier.Notify("Failed to create task", failureDetail(err))
		return domain.Task{}, err
	}

	s.mu.Lock()
	for i := range s.tasks {
		if s.tasks[i].Ref.Equal(optimistic.Ref) {
			s.tasks[i] = created
			break
		}
	}
	s.mu.Unlock()

	s.notifier.Notify("Task created", title+" added")
	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return created, nil
}

// UpdateTask applies the patch to the local record immediately, then
// reconciles: on success the record is fully replaced by the normalized
// server response, on failure it reverts to its pre-call value.
func (s *Store) UpdateTask(ctx context.Context, ref domain.Ref, patch domain.TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	idx := s.taskIndexLocked(ref)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Task{}, ErrUnknownTask
	}
	prev := s.tasks[idx]
	updated := prev
	patch.Apply(&updated)
	s.tasks[idx] = updated
	s.mu.Unlock()

	// An optimistic task has no server record to patch yet; the change
	// stays local until creation reconciles.
	if !ref.Confirmed() {
		return updated, nil
	}

	canonical, err := s.api.UpdateTask(ctx, ref.ID, patch)
	if err != nil {
		s.mu.Lock()
		if i := s.taskIndexLocked(ref); i >= 0 {
			s.tasks[i] = prev
		}
		s.mu.Unlock()
		s.notifier.Notify("Failed to update task", failureDetail(err))
		return domain.Task{}, err
	}

	s.mu.Lock()
	if i := s.taskIndexLocked(ref); i >= 0 {
		s.tasks[i] = canonical
	}
	s.mu.Unlock()

	s.notifier.Notify("Task updated", "Task has been successfully updated")
	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return canonical, nil
}

// MoveTask moves a task to another column.
func (s *Store) MoveTask(ctx context.Context, ref domain.Ref, status domain.Status) (domain.Task, error) {
	return s.UpdateTask(ctx, ref, domain.TaskPatch{Status: &status})
}

// UpdateTaskPriority changes a task's priority.
func (s *Store) UpdateTaskPriority(ctx context.Context, ref domain.Ref, priority domain.Priority) (domain.Task, error) {
	return s.UpdateTask(ctx, ref, domain.TaskPatch{Priority: &priority})
}

// AddTaskToSprint schedules a task into a sprint.
func (s *Store) AddTaskToSprint(ctx context.Context, ref domain.Ref, sprintID int64) (domain.Task, error) {
	return s.UpdateTask(ctx, ref, domain.TaskPatch{Sprint: &sprintID})
}

// RemoveTaskFromSprint moves a task back to the backlog.
func (s *Store) RemoveTaskFromSprint(ctx context.Context, ref domain.Ref) (domain.Task, error) {
	var backlog int64
	return s.UpdateTask(ctx, ref, domain.TaskPatch{Sprint: &backlog})
}

// DeleteTask removes the task locally and fires a best-effort server
// delete. The client stays authoritative: the server outcome is logged
// but never rolled back.
func (s *Store) DeleteTask(ctx context.Context, ref domain.Ref) error {
	s.mu.Lock()
	if s.taskIndexLocked(ref) < 0 {
		s.mu.Unlock()
		return ErrUnknownTask
	}
	s.removeTaskLocked(ref)
	s.mu.Unlock()

	if ref.Confirmed() {
		if err := s.api.DeleteTask(ctx, ref.ID); err != nil {
			s.log.WithError(err).WithField("task", ref.String()).Debug("server delete failed; keeping local removal")
		}
	}
	s.notifier.Notify("Task deleted", "Task has been removed")
	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return nil
}

func (s *Store) taskIndexLocked(ref domain.Ref) int {
	for i := range s.tasks {
		if s.tasks[i].Ref.Equal(ref) {
			return i
		}
	}
	return -1
}

func (s *Store) removeTaskLocked(ref domain.Ref) {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.Ref.Equal(ref) {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
}

func (s *Store) removeProjectLocked(ref domain.Ref) string {
	name := ""
	kept := s.projects[:0]
	for _, p := range s.projects {
		if p.Ref.Equal(ref) {
			name = p.Name
			continue
		}
		kept = append(kept, p)
	}
	s.projects = kept
	return name
}
