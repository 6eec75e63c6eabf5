package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskflow-sync/domain"
)

func newTestSnapshot(t *testing.T) (*Snapshot, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshot(client, time.Minute, nil), mr
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	snap, mr := newTestSnapshot(t)
	ctx := context.Background()

	projects := []domain.Project{{Ref: domain.NumRef(1), Name: "P1", Color: "bg-primary"}}
	tasks := []domain.Task{{Ref: domain.NumRef(10), Title: "a", ProjectID: 1, Status: domain.StatusTodo}}
	snap.Save(ctx, projects, tasks)

	if ttl := mr.TTL(snapshotKey); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	gotProjects, gotTasks, ok := snap.Load(ctx)
	if !ok {
		t.Fatal("expected snapshot hit")
	}
	if len(gotProjects) != 1 || gotProjects[0].Name != "P1" {
		t.Fatalf("projects round trip: %+v", gotProjects)
	}
	if len(gotTasks) != 1 || !gotTasks[0].Ref.Equal(domain.NumRef(10)) {
		t.Fatalf("tasks round trip: %+v", gotTasks)
	}
}

func TestSnapshotCorruptPayloadSelfEvicts(t *testing.T) {
	snap, mr := newTestSnapshot(t)
	ctx := context.Background()
	mr.Set(snapshotKey, "{not json")

	if _, _, ok := snap.Load(ctx); ok {
		t.Fatal("corrupt payload must miss")
	}
	if mr.Exists(snapshotKey) {
		t.Fatal("corrupt payload should be evicted")
	}
}

func TestSnapshotNilSafe(t *testing.T) {
	ctx := context.Background()
	var snap *Snapshot
	snap.Save(ctx, nil, nil)
	snap.Evict(ctx)
	if _, _, ok := snap.Load(ctx); ok {
		t.Fatal("nil snapshot must miss")
	}

	disabled := NewSnapshot(nil, time.Minute, nil)
	disabled.Save(ctx, nil, nil)
	if _, _, ok := disabled.Load(ctx); ok {
		t.Fatal("nil redis client must miss")
	}
}

func TestStartWarmLoadsThenRealFetchWins(t *testing.T) {
	snap, _ := newTestSnapshot(t)
	ctx := context.Background()
	snap.Save(ctx,
		[]domain.Project{{Ref: domain.NumRef(1), Name: "Stale"}},
		[]domain.Task{{Ref: domain.NumRef(10), Title: "stale", ProjectID: 1}},
	)

	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			return []domain.Project{{Ref: domain.NumRef(1), Name: "Fresh"}}, nil
		},
		listProjectTasksFn: func(context.Context, int64) ([]domain.Task, error) {
			return []domain.Task{{Ref: domain.NumRef(11), Title: "fresh", ProjectID: 1}}, nil
		},
		taskStatsFn: func(context.Context, int64) (int, error) { return 1, nil },
	}
	s := newTestStore(api, nil, Options{Snapshot: snap})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	projects := s.Projects()
	if len(projects) != 1 || projects[0].Name != "Fresh" {
		t.Fatalf("real fetch should replace the warm state, got %+v", projects)
	}
	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "fresh" {
		t.Fatalf("tasks should be refetched, got %+v", tasks)
	}
}

func TestStartFetchFailureClearsAndEvicts(t *testing.T) {
	snap, mr := newTestSnapshot(t)
	ctx := context.Background()
	snap.Save(ctx, []domain.Project{{Ref: domain.NumRef(1), Name: "Stale"}}, nil)

	api := &stubAPI{
		listProjectsFn: func(context.Context) ([]domain.Project, error) {
			return nil, errors.New("down")
		},
	}
	s := newTestStore(api, nil, Options{Snapshot: snap})

	if err := s.Start(ctx); err == nil {
		t.Fatal("expected start to report the fetch failure")
	}
	if got := s.Projects(); len(got) != 0 {
		t.Fatalf("failed fetch must clear the mirror, got %+v", got)
	}
	if mr.Exists(snapshotKey) {
		t.Fatal("failed fetch must evict the snapshot")
	}
}
