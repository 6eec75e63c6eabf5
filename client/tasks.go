package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"taskflow-sync/domain"
)

// ListProjectTasks fetches tasks belonging to a project, normalized.
func (c *Client) ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	return c.listTasks(ctx, "project", projectID)
}

// ListSprintTasks fetches tasks assigned to a sprint, normalized.
func (c *Client) ListSprintTasks(ctx context.Context, sprintID int64) ([]domain.Task, error) {
	return c.listTasks(ctx, "sprint", sprintID)
}

func (c *Client) listTasks(ctx context.Context, filter string, id int64) ([]domain.Task, error) {
	q := url.Values{}
	q.Set(filter, strconv.FormatInt(id, 10))
	var raw []domain.TaskRecord
	if err := c.do(ctx, http.MethodGet, "/tasks/", q, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Normalize())
	}
	return out, nil
}

// TaskStats returns the server-side task total for a project.
func (c *Client) TaskStats(ctx context.Context, projectID int64) (int, error) {
	q := url.Values{}
	q.Set("project", strconv.FormatInt(projectID, 10))
	var stats struct {
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks/stats/", q, nil, &stats); err != nil {
		return 0, err
	}
	return stats.Total, nil
}

type createTaskPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Project     int64   `json:"project"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
	Sprint      *int64  `json:"sprint,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// CreateTask creates a task from the optimistic local record and returns
// the normalized server record.
func (c *Client) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	payload := createTaskPayload{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.ProjectID,
		Status:      string(t.Status),
	}
	if t.DueDate != "" {
		payload.DueDate = &t.DueDate
	}
	if t.SprintID != 0 {
		payload.Sprint = &t.SprintID
	}
	if t.Type != "" && t.Type != domain.TypeTask {
		payload.Type = string(t.Type)
	}
	var raw domain.TaskRecord
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, payload, &raw); err != nil {
		return domain.Task{}, err
	}
	return raw.Normalize(), nil
}

// UpdateTask sends a partial update carrying only the fields present in
// the patch, translated to the server's naming. An empty due date and a
// zero sprint are sent as explicit nulls so the server clears them.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	payload := map[string]any{}
	if patch.Title != nil {
		payload["title"] = *patch.Title
	}
	if patch.Description != nil {
		payload["description"] = *patch.Description
	}
	if patch.Status != nil {
		payload["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		payload["priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		if *patch.DueDate == "" {
			payload["due_date"] = nil
		} else {
			payload["due_date"] = *patch.DueDate
		}
	}
	if patch.Project != nil {
		payload["project"] = *patch.Project
	}
	if patch.Sprint != nil {
		if *patch.Sprint == 0 {
			payload["sprint"] = nil
		} else {
			payload["sprint"] = *patch.Sprint
		}
	}
	var raw domain.TaskRecord
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/", id), nil, payload, &raw); err != nil {
		return domain.Task{}, err
	}
	return raw.Normalize(), nil
}

// DeleteTask removes a task on the server.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d/", id), nil, nil, nil)
}
