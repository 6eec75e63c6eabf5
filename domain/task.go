package domain

// Status is a Kanban column.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is one of the fixed column values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority is a ranked task priority.
type Priority string

const (
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

// ValidPriority reports whether p is one of the fixed priority values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLowest, PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest:
		return true
	}
	return false
}

// IssueType classifies a task.
type IssueType string

const (
	TypeTask    IssueType = "task"
	TypeStory   IssueType = "story"
	TypeBug     IssueType = "bug"
	TypeEpic    IssueType = "epic"
	TypeSubtask IssueType = "subtask"
)

// Task mirrors a single board item. SprintID zero means the task sits in
// the backlog.
type Task struct {
	Ref         Ref       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"dueDate"`
	ProjectID   int64     `json:"project"`
	SprintID    int64     `json:"sprintId,omitempty"`
	Tags        []string  `json:"tags"`
	Assignees   []string  `json:"assignees"`
	Type        IssueType `json:"type"`
	StoryPoints int       `json:"storyPoints,omitempty"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
// A non-nil Sprint pointing at zero clears the sprint assignment.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *string
	Project     *int64
	Sprint      *int64
}

// Apply merges the patch into t, field by field.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Project != nil {
		t.ProjectID = *p.Project
	}
	if p.Sprint != nil {
		t.SprintID = *p.Sprint
	}
}
