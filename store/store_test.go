package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"taskflow-sync/domain"
	"taskflow-sync/notify"
)

type stubAPI struct {
	listProjectsFn     func(ctx context.Context) ([]domain.Project, error)
	createProjectFn    func(ctx context.Context, name, color string) (domain.Project, error)
	deleteProjectFn    func(ctx context.Context, id int64) error
	listProjectTasksFn func(ctx context.Context, projectID int64) ([]domain.Task, error)
	listSprintTasksFn  func(ctx context.Context, sprintID int64) ([]domain.Task, error)
	taskStatsFn        func(ctx context.Context, projectID int64) (int, error)
	createTaskFn       func(ctx context.Context, t domain.Task) (domain.Task, error)
	updateTaskFn       func(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	deleteTaskFn       func(ctx context.Context, id int64) error
}

func (s *stubAPI) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if s.listProjectsFn == nil {
		return nil, errors.New("unexpected ListProjects call")
	}
	return s.listProjectsFn(ctx)
}

func (s *stubAPI) CreateProject(ctx context.Context, name, color string) (domain.Project, error) {
	if s.createProjectFn == nil {
		return domain.Project{}, errors.New("unexpected CreateProject call")
	}
	return s.createProjectFn(ctx, name, color)
}

func (s *stubAPI) DeleteProject(ctx context.Context, id int64) error {
	if s.deleteProjectFn == nil {
		return errors.New("unexpected DeleteProject call")
	}
	return s.deleteProjectFn(ctx, id)
}

func (s *stubAPI) ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	if s.listProjectTasksFn == nil {
		return []domain.Task{}, nil
	}
	return s.listProjectTasksFn(ctx, projectID)
}

func (s *stubAPI) ListSprintTasks(ctx context.Context, sprintID int64) ([]domain.Task, error) {
	if s.listSprintTasksFn == nil {
		return []domain.Task{}, nil
	}
	return s.listSprintTasksFn(ctx, sprintID)
}

func (s *stubAPI) TaskStats(ctx context.Context, projectID int64) (int, error) {
	if s.taskStatsFn == nil {
		return 0, errors.New("unexpected TaskStats call")
	}
	return s.taskStatsFn(ctx, projectID)
}

func (s *stubAPI) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if s.createTaskFn == nil {
		return domain.Task{}, errors.New("unexpected CreateTask call")
	}
	return s.createTaskFn(ctx, t)
}

func (s *stubAPI) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if s.updateTaskFn == nil {
		return domain.Task{}, errors.New("unexpected UpdateTask call")
	}
	return s.updateTaskFn(ctx, id, patch)
}

func (s *stubAPI) DeleteTask(ctx context.Context, id int64) error {
	if s.deleteTaskFn == nil {
		return errors.New("unexpected DeleteTask call")
	}
	return s.deleteTaskFn(ctx, id)
}

type recorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *recorder) Notify(title, _ string) {
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
}

func (r *recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.titles))
	copy(out, r.titles)
	return out
}

func newTestStore(api RemoteAPI, notifier notify.Notifier, opts Options) *Store {
	logger, _ := test.NewNullLogger()
	return New(api, notifier, logger, opts)
}

func TestFetchProjectsReplacesMirrorAndPicksActive(t *testing.T) {
	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			return []domain.Project{
				{Ref: domain.NumRef(1), Name: "TaskFlow Web App", Color: "bg-primary"},
				{Ref: domain.NumRef(2), Name: "Side Project", Color: "bg-accent"},
			}, nil
		},
	}
	s := newTestStore(api, nil, Options{})

	if err := s.FetchProjects(context.Background()); err != nil {
		t.Fatalf("fetch projects: %v", err)
	}
	projects := s.Projects()
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	active, ok := s.ActiveProject()
	if !ok || !active.Ref.Equal(domain.NumRef(1)) {
		t.Fatalf("expected first project active, got %+v ok=%v", active, ok)
	}
}

func TestFetchProjectsKeepsActiveWhenStillPresent(t *testing.T) {
	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			return []domain.Project{
				{Ref: domain.NumRef(1), Name: "A"},
				{Ref: domain.NumRef(2), Name: "B"},
			}, nil
		},
	}
	s := newTestStore(api, nil, Options{})
	if err := s.FetchProjects(context.Background()); err != nil {
		t.Fatalf("fetch projects: %v", err)
	}
	s.SwitchProject(context.Background(), domain.NumRef(2))

	if err := s.FetchProjects(context.Background()); err != nil {
		t.Fatalf("refetch projects: %v", err)
	}
	active, ok := s.ActiveProject()
	if !ok || !active.Ref.Equal(domain.NumRef(2)) {
		t.Fatalf("active should survive refetch, got %+v ok=%v", active, ok)
	}
}

func TestFetchProjectsFailureClearsState(t *testing.T) {
	calls := 0
	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			calls++
			if calls == 1 {
				return []domain.Project{{Ref: domain.NumRef(1), Name: "A"}}, nil
			}
			return nil, errors.New("boom")
		},
	}
	s := newTestStore(api, nil, Options{})
	if err := s.FetchProjects(context.Background()); err != nil {
		t.Fatalf("fetch projects: %v", err)
	}

	if err := s.FetchProjects(context.Background()); err == nil {
		t.Fatal("expected error from failing fetch")
	}
	if got := s.Projects(); len(got) != 0 {
		t.Fatalf("projects should be cleared on failure, got %+v", got)
	}
	if _, ok := s.ActiveProject(); ok {
		t.Fatal("active project should be cleared on failure")
	}
}

func TestFetchTasksMergesByProjectAndIsIdempotent(t *testing.T) {
	server := map[int64][]domain.Task{
		1: {{Ref: domain.NumRef(10), Title: "a", ProjectID: 1, Status: domain.StatusTodo}},
		2: {{Ref: domain.NumRef(20), Title: "b", ProjectID: 2, Status: domain.StatusDone}},
	}
	api := &stubAPI{
		listProjectTasksFn: func(_ context.Context, id int64) ([]domain.Task, error) {
			return append([]domain.Task(nil), server[id]...), nil
		},
	}
	s := newTestStore(api, nil, Options{})

	for _, id := range []int64{1, 2} {
		if err := s.FetchTasks(context.Background(), id); err != nil {
			t.Fatalf("fetch tasks %d: %v", id, err)
		}
	}
	first := s.Tasks()
	if len(first) != 2 {
		t.Fatalf("expected merged tasks from both projects, got %+v", first)
	}

	if err := s.FetchTasks(context.Background(), 1); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	second := s.Tasks()
	if len(second) != 2 {
		t.Fatalf("refetch must not duplicate, got %+v", second)
	}
	byID := func(tasks []domain.Task, id int64) (domain.Task, bool) {
		for _, task := range tasks {
			if task.Ref.Equal(domain.NumRef(id)) {
				return task, true
			}
		}
		return domain.Task{}, false
	}
	a1, _ := byID(first, 10)
	a2, ok := byID(second, 10)
	if !ok || !reflect.DeepEqual(a1, a2) {
		t.Fatalf("repeated fetch changed task value: %+v vs %+v", a1, a2)
	}
	if _, ok := byID(second, 20); !ok {
		t.Fatal("tasks of other projects must survive a project fetch")
	}
}

func TestFetchTasksFailureKeepsStaleState(t *testing.T) {
	healthy := true
	api := &stubAPI{
		listProjectTasksFn: func(_ context.Context, id int64) ([]domain.Task, error) {
			if !healthy {
				return nil, errors.New("down")
			}
			return []domain.Task{{Ref: domain.NumRef(10), Title: "a", ProjectID: id}}, nil
		},
	}
	s := newTestStore(api, nil, Options{})
	if err := s.FetchTasks(context.Background(), 1); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	healthy = false
	if err := s.FetchTasks(context.Background(), 1); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := s.Tasks(); len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("stale tasks should survive a failed fetch, got %+v", got)
	}
}

func TestStaleFetchResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	call := 0
	api := &stubAPI{
		listProjectTasksFn: func(_ context.Context, id int64) ([]domain.Task, error) {
			call++
			if call == 1 {
				close(started)
				<-release
				return []domain.Task{{Ref: domain.NumRef(10), Title: "old", ProjectID: id}}, nil
			}
			return []domain.Task{{Ref: domain.NumRef(11), Title: "new", ProjectID: id}}, nil
		},
	}
	s := newTestStore(api, nil, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.FetchTasks(context.Background(), 1)
	}()
	<-started

	// A second fetch for the same key supersedes the in-flight one.
	if err := s.FetchTasks(context.Background(), 1); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	close(release)
	<-done

	got := s.Tasks()
	if len(got) != 1 || got[0].Title != "new" {
		t.Fatalf("stale response must not overwrite newer state, got %+v", got)
	}
}

func TestSwitchSprintFetchesSprintTasks(t *testing.T) {
	var fetched int64
	api := &stubAPI{
		listSprintTasksFn: func(_ context.Context, id int64) ([]domain.Task, error) {
			fetched = id
			return []domain.Task{{Ref: domain.NumRef(30), Title: "s", ProjectID: 1, SprintID: id}}, nil
		},
	}
	sprints := []domain.Sprint{
		{ID: 1, Name: "Sprint 1", Status: "active"},
		{ID: 2, Name: "Sprint 2"},
	}
	s := newTestStore(api, nil, Options{Sprints: sprints})

	if sp, ok := s.ActiveSprint(); !ok || sp.ID != 1 {
		t.Fatalf("seed should make first sprint active, got %+v ok=%v", sp, ok)
	}
	s.SwitchSprint(context.Background(), 2)
	if fetched != 2 {
		t.Fatalf("expected sprint 2 fetch, got %d", fetched)
	}
	if sp, _ := s.ActiveSprint(); sp.ID != 2 {
		t.Fatalf("active sprint = %+v", sp)
	}
	if got := s.TasksBySprint(2); len(got) != 1 {
		t.Fatalf("sprint tasks not merged: %+v", got)
	}

	// Unknown sprint is a silent no-op.
	s.SwitchSprint(context.Background(), 99)
	if sp, _ := s.ActiveSprint(); sp.ID != 2 {
		t.Fatalf("unknown sprint must not change selection, got %+v", sp)
	}
}
