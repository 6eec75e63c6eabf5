package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"taskflow-sync/domain"
)

func TestRefreshTaskCountsWithFallback(t *testing.T) {
	api := &stubAPI{
		taskStatsFn: func(_ context.Context, id int64) (int, error) {
			if id == 2 {
				return 0, errors.New("stats unavailable")
			}
			return int(id * 10), nil
		},
	}
	s := newTestStore(api, nil, Options{})
	seedProjects(s,
		domain.Project{Ref: domain.NumRef(1), Name: "P1"},
		domain.Project{Ref: domain.NumRef(2), Name: "P2"},
		domain.Project{Ref: domain.NewTempRef("tmp-"), Name: "Pending"},
	)
	seedTasks(s,
		domain.Task{Ref: domain.NumRef(20), ProjectID: 2},
		domain.Task{Ref: domain.NumRef(21), ProjectID: 2},
	)

	s.RefreshTaskCounts(context.Background())

	projects := s.Projects()
	if projects[0].TaskCount != 10 {
		t.Fatalf("P1 count = %d, want 10", projects[0].TaskCount)
	}
	if projects[1].TaskCount != 2 {
		t.Fatalf("P2 should fall back to local count 2, got %d", projects[1].TaskCount)
	}
	if projects[2].TaskCount != 0 {
		t.Fatalf("temp project must not be counted, got %d", projects[2].TaskCount)
	}
}

func TestTaskCountsTrackTaskListChanges(t *testing.T) {
	var total atomic.Int64
	total.Store(1)
	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			return []domain.Project{{Ref: domain.NumRef(1), Name: "P1"}}, nil
		},
		listProjectTasksFn: func(context.Context, int64) ([]domain.Task, error) {
			return []domain.Task{{Ref: domain.NumRef(10), Title: "first", ProjectID: 1}}, nil
		},
		taskStatsFn: func(context.Context, int64) (int, error) {
			return int(total.Load()), nil
		},
		createTaskFn: func(_ context.Context, task domain.Task) (domain.Task, error) {
			confirmed := task
			confirmed.Ref = domain.NumRef(11)
			total.Store(2)
			return confirmed, nil
		},
		deleteTaskFn: func(context.Context, int64) error {
			total.Store(1)
			return nil
		},
	}
	s := newTestStore(api, nil, Options{})
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := s.TaskCount(domain.NumRef(1)); n != 1 {
		t.Fatalf("initial count = %d, want 1", n)
	}

	if _, err := s.CreateTask(ctx, domain.StatusTodo, "second", "", CreateTaskOptions{}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if n := s.TaskCount(domain.NumRef(1)); n != 2 {
		t.Fatalf("count after create = %d, want 2", n)
	}

	if err := s.DeleteTask(ctx, domain.NumRef(11)); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if n := s.TaskCount(domain.NumRef(1)); n != 1 {
		t.Fatalf("count after delete = %d, want 1", n)
	}
}

func TestRefreshTaskCountsBoundsConcurrency(t *testing.T) {
	var inflight, peak int64
	var mu sync.Mutex
	block := make(chan struct{})
	api := &stubAPI{
		taskStatsFn: func(_ context.Context, id int64) (int, error) {
			cur := atomic.AddInt64(&inflight, 1)
			mu.Lock()
			if cur > peak {
				peak = cur
			}
			mu.Unlock()
			<-block
			atomic.AddInt64(&inflight, -1)
			return 1, nil
		},
	}
	s := newTestStore(api, nil, Options{})
	var projects []domain.Project
	for i := int64(1); i <= 12; i++ {
		projects = append(projects, domain.Project{Ref: domain.NumRef(i)})
	}
	seedProjects(s, projects...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RefreshTaskCounts(context.Background())
	}()
	close(block)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if peak > statsWorkers {
		t.Fatalf("fan-out exceeded bound: peak=%d workers=%d", peak, statsWorkers)
	}
}
