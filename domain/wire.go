package domain

// TaskRecord mirrors the JSON shape the TaskFlow backend returns for a
// task. Older deployments report completion via the legacy "completed"
// flag or a completion timestamp instead of an explicit status.
type TaskRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date"`
	Completed   bool     `json:"completed"`
	CompletedAt string   `json:"completed_at"`
	Project     int64    `json:"project"`
	Sprint      *int64   `json:"sprint"`
	Tags        []string `json:"tags"`
	Assignees   []string `json:"assignees"`
	Type        string   `json:"type"`
	StoryPoints int      `json:"story_points"`
}

// Normalize maps a server task record into the internal shape, applying
// the client-side defaults: status falls back to done when only a legacy
// completion marker is present, otherwise todo; priority defaults to
// medium; list fields are never nil; type defaults to task.
func (r TaskRecord) Normalize() Task {
	status := Status(r.Status)
	if r.Status == "" {
		if r.Completed || r.CompletedAt != "" {
			status = StatusDone
		} else {
			status = StatusTodo
		}
	}
	priority := Priority(r.Priority)
	if r.Priority == "" {
		priority = PriorityMedium
	}
	issueType := IssueType(r.Type)
	if r.Type == "" {
		issueType = TypeTask
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	assignees := r.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	var sprintID int64
	if r.Sprint != nil {
		sprintID = *r.Sprint
	}
	return Task{
		Ref:         NumRef(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     r.DueDate,
		ProjectID:   r.Project,
		SprintID:    sprintID,
		Tags:        tags,
		Assignees:   assignees,
		Type:        issueType,
		StoryPoints: r.StoryPoints,
	}
}

// ProjectRecord mirrors the JSON shape of a server project.
type ProjectRecord struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Tasks int    `json:"tasks"`
}

// Normalize maps a server project record into the internal shape. A
// missing task count stays zero.
func (r ProjectRecord) Normalize() Project {
	return Project{
		Ref:       NumRef(r.ID),
		Name:      r.Name,
		Color:     r.Color,
		TaskCount: r.Tasks,
	}
}
