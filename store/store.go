// Package store keeps a client-side mirror of the remote TaskFlow API:
// projects, tasks and sprints, kept approximately consistent through an
// optimistic-update-then-reconcile discipline. Collections are mutated
// only through the store's own actions; readers get copies.
package store

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskflow-sync/domain"
	"taskflow-sync/notify"
)

// RemoteAPI is the slice of the TaskFlow API the store depends on.
type RemoteAPI interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, name, color string) (domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error)
	ListSprintTasks(ctx context.Context, sprintID int64) ([]domain.Task, error)
	TaskStats(ctx context.Context, projectID int64) (int, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

var (
	ErrNoProject      = errors.New("no project selected")
	ErrProjectPending = errors.New("project is still being created")
	ErrUnknownProject = errors.New("unknown project")
	ErrUnknownTask    = errors.New("unknown task")
)

// Options carries the optional store collaborators.
type Options struct {
	// Snapshot enables warm starts from the last synced state.
	Snapshot *Snapshot
	// Sprints seeds the sprint collection; the upstream API exposes no
	// sprint listing, so sprints are configuration.
	Sprints []domain.Sprint
}

// Store mirrors the remote collections and owns all mutations to them.
type Store struct {
	api      RemoteAPI
	notifier notify.Notifier
	log      *log.Logger
	snapshot *Snapshot

	mu            sync.Mutex
	projects      []domain.Project
	tasks         []domain.Task
	sprints       []domain.Sprint
	activeProject domain.Ref
	activeSprint  int64
	gens          map[string]uint64
}

// New creates a Store. The notifier and logger may be nil.
func New(api RemoteAPI, notifier notify.Notifier, logger *log.Logger, opts Options) *Store {
	if notifier == nil {
		notifier = notify.Func(func(string, string) {})
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Store{
		api:      api,
		notifier: notifier,
		log:      logger,
		snapshot: opts.Snapshot,
		gens:     map[string]uint64{},
	}
	s.sprints = append(s.sprints, opts.Sprints...)
	if len(s.sprints) > 0 {
		s.activeSprint = s.sprints[0].ID
	}
	return s
}

// Start warms the mirror from the snapshot when one is available, then
// performs the authoritative initial sync: projects, then tasks for the
// resulting active project. Task counts refresh as part of that cascade.
func (s *Store) Start(ctx context.Context) error {
	if projects, tasks, ok := s.snapshot.Load(ctx); ok {
		s.mu.Lock()
		s.projects = projects
		s.tasks = tasks
		if len(projects) > 0 {
			s.activeProject = projects[0].Ref
		}
		s.mu.Unlock()
		s.log.WithFields(log.Fields{"projects": len(projects), "tasks": len(tasks)}).
			Debug("warm start from snapshot")
	}
	return s.FetchProjects(ctx)
}

// Fetch generation bookkeeping. A response is applied only when its
// generation is still the latest issued for its resource key, so a
// slow fetch for a since-abandoned selection cannot clobber state.

const keyProjects = "projects"

func keyProjectTasks(id int64) string { return "tasks/project/" + domain.NumRef(id).String() }
func keySprintTasks(id int64) string  { return "tasks/sprint/" + domain.NumRef(id).String() }

func (s *Store) beginFetch(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[key]++
	return s.gens[key]
}

func (s *Store) staleLocked(key string, gen uint64) bool {
	return s.gens[key] != gen
}

// FetchProjects replaces the project mirror with the server list. On
// failure the mirror is cleared rather than left stale: once a real
// fetch has been attempted the store never falls back to seed data.
// Failures are not surfaced to the notifier.
func (s *Store) FetchProjects(ctx context.Context) error {
	gen := s.beginFetch(keyProjects)
	list, err := s.api.ListProjects(ctx)

	s.mu.Lock()
	if s.staleLocked(keyProjects, gen) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.projects = nil
		s.activeProject = domain.Ref{}
		s.mu.Unlock()
		s.log.WithError(err).Warn("projects fetch failed")
		s.snapshot.Evict(ctx)
		return err
	}
	s.projects = list
	if !s.activeProject.Confirmed() || !s.containsProjectLocked(s.activeProject) {
		if len(list) > 0 {
			s.activeProject = list[0].Ref
		} else {
			s.activeProject = domain.Ref{}
		}
	}
	active := s.activeProject
	s.mu.Unlock()

	s.saveSnapshot(ctx)
	if active.Confirmed() {
		return s.FetchTasks(ctx, active.ID)
	}
	return nil
}

// FetchTasks merges the server's task list for one project into the
// mirror, replacing that project's entries and leaving other projects
// untouched. Failures keep the existing (possibly stale) entries.
// Success re-runs the task-count aggregation pass.
func (s *Store) FetchTasks(ctx context.Context, projectID int64) error {
	if projectID == 0 {
		return nil
	}
	key := keyProjectTasks(projectID)
	gen := s.beginFetch(key)
	list, err := s.api.ListProjectTasks(ctx, projectID)

	s.mu.Lock()
	if s.staleLocked(key, gen) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("project", projectID).Warn("tasks fetch failed; keeping local state")
		return err
	}
	merged := make([]domain.Task, 0, len(s.tasks)+len(list))
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			merged = append(merged, t)
		}
	}
	merged = append(merged, list...)
	s.tasks = merged
	s.mu.Unlock()

	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return nil
}

// FetchSprintTasks merges the server's task list for one sprint into the
// mirror, replacing that sprint's entries.
func (s *Store) FetchSprintTasks(ctx context.Context, sprintID int64) error {
	if sprintID == 0 {
		return nil
	}
	key := keySprintTasks(sprintID)
	gen := s.beginFetch(key)
	list, err := s.api.ListSprintTasks(ctx, sprintID)

	s.mu.Lock()
	if s.staleLocked(key, gen) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("sprint", sprintID).Warn("sprint tasks fetch failed; keeping local state")
		return err
	}
	merged := make([]domain.Task, 0, len(s.tasks)+len(list))
	for _, t := range s.tasks {
		if t.SprintID != sprintID {
			merged = append(merged, t)
		}
	}
	merged = append(merged, list...)
	s.tasks = merged
	s.mu.Unlock()

	s.saveSnapshot(ctx)
	s.RefreshTaskCounts(ctx)
	return nil
}

func (s *Store) containsProjectLocked(ref domain.Ref) bool {
	for _, p := range s.projects {
		if p.Ref.Equal(ref) {
			return true
		}
	}
	return false
}

// Projects returns a copy of the project mirror.
func (s *Store) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Tasks returns a copy of the task mirror.
func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Sprints returns a copy of the sprint collection.
func (s *Store) Sprints() []domain.Sprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Sprint, len(s.sprints))
	copy(out, s.sprints)
	return out
}

// ActiveProject returns the currently active project, if any.
func (s *Store) ActiveProject() (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Ref.Equal(s.activeProject) {
			return p, true
		}
	}
	return domain.Project{}, false
}

// ActiveSprint returns the currently active sprint, if any.
func (s *Store) ActiveSprint() (domain.Sprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range s.sprints {
		if sp.ID == s.activeSprint && sp.ID != 0 {
			return sp, true
		}
	}
	return domain.Sprint{}, false
}

func (s *Store) saveSnapshot(ctx context.Context) {
	if s.snapshot == nil {
		return
	}
	s.mu.Lock()
	projects := make([]domain.Project, len(s.projects))
	copy(projects, s.projects)
	tasks := make([]domain.Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()
	s.snapshot.Save(ctx, projects, tasks)
}
