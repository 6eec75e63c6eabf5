package store

import (
	"context"
	"sync"
)

// statsWorkers bounds the stats fan-out so the request count stays flat
// as projects grow.
const statsWorkers = 4

// RefreshTaskCounts updates every loaded project's cached task count from
// the bulk statistics endpoint, falling back to counting the local mirror
// for projects whose stats call fails. It re-runs after every fetch or
// mutation that changes the task list, so the cached aggregates track
// the mirror.
func (s *Store) RefreshTaskCounts(ctx context.Context) {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.projects))
	for _, p := range s.projects {
		if p.Ref.Confirmed() {
			ids = append(ids, p.Ref.ID)
		}
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	var (
		mu     sync.Mutex
		counts = make(map[int64]int, len(ids))
	)
	jobs := make(chan int64)
	var wg sync.WaitGroup
	workers := statsWorkers
	if len(ids) < workers {
		workers = len(ids)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				total, err := s.api.TaskStats(ctx, id)
				if err != nil {
					s.log.WithError(err).WithField("project", id).Debug("stats fetch failed; counting locally")
					total = s.countLocalTasks(id)
				}
				mu.Lock()
				counts[id] = total
				mu.Unlock()
			}
		}()
	}
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	s.mu.Lock()
	for i := range s.projects {
		if total, ok := counts[s.projects[i].Ref.ID]; ok && s.projects[i].Ref.Confirmed() {
			s.projects[i].TaskCount = total
		}
	}
	s.mu.Unlock()
}

func (s *Store) countLocalTasks(projectID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n
}
