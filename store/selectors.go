package store

import "taskflow-sync/domain"

// Selectors are pure reads over the mirror; all of them return copies.

// resolveProjectLocked maps a zero ref to the active project.
func (s *Store) resolveProjectLocked(project domain.Ref) domain.Ref {
	if project.IsZero() {
		return s.activeProject
	}
	return project
}

// TasksByStatus returns the project's tasks in the given column,
// excluding tasks scheduled into a sprint so board views show only
// unscheduled work. A zero project ref means the active project.
func (s *Store) TasksByStatus(project domain.Ref, status domain.Status) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.resolveProjectLocked(project)
	out := []domain.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == ref.ID && ref.Confirmed() && t.Status == status && t.SprintID == 0 {
			out = append(out, t)
		}
	}
	return out
}

// TasksByType returns the project's tasks of the given issue type.
// A zero project ref means the active project.
func (s *Store) TasksByType(project domain.Ref, issueType domain.IssueType) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.resolveProjectLocked(project)
	out := []domain.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == ref.ID && ref.Confirmed() && t.Type == issueType {
			out = append(out, t)
		}
	}
	return out
}

// BacklogTasks returns the active project's tasks that are not assigned
// to any sprint.
func (s *Store) BacklogTasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Task{}
	if !s.activeProject.Confirmed() {
		return out
	}
	for _, t := range s.tasks {
		if t.ProjectID == s.activeProject.ID && t.SprintID == 0 {
			out = append(out, t)
		}
	}
	return out
}

// TasksBySprint returns exactly the tasks whose sprint reference equals
// sprintID.
func (s *Store) TasksBySprint(sprintID int64) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Task{}
	if sprintID == 0 {
		return out
	}
	for _, t := range s.tasks {
		if t.SprintID == sprintID {
			out = append(out, t)
		}
	}
	return out
}

// TaskCount reports the project's total task count, preferring the
// server aggregate and falling back to counting loaded tasks. A zero
// project ref means the active project.
func (s *Store) TaskCount(project domain.Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.resolveProjectLocked(project)
	for _, p := range s.projects {
		if p.Ref.Equal(ref) && p.TaskCount != 0 {
			return p.TaskCount
		}
	}
	if !ref.Confirmed() {
		return 0
	}
	n := 0
	for _, t := range s.tasks {
		if t.ProjectID == ref.ID {
			n++
		}
	}
	return n
}
