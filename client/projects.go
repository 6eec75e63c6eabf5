package client

import (
	"context"
	"fmt"
	"net/http"

	"taskflow-sync/domain"
)

// ListProjects fetches the full project list for the current credential.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var raw []domain.ProjectRecord
	if err := c.do(ctx, http.MethodGet, "/projects/", nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Normalize())
	}
	return out, nil
}

type createProjectPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateProject creates a project and returns the server record.
func (c *Client) CreateProject(ctx context.Context, name, color string) (domain.Project, error) {
	var raw domain.ProjectRecord
	payload := createProjectPayload{Name: name, Color: color}
	if err := c.do(ctx, http.MethodPost, "/projects/", nil, payload, &raw); err != nil {
		return domain.Project{}, err
	}
	return raw.Normalize(), nil
}

// DeleteProject removes a project on the server.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d/", id), nil, nil, nil)
}
