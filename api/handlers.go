package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow-sync/domain"
	"taskflow-sync/store"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up the gateway routes on the provided Echo instance.
func Register(e *echo.Echo, board Board, notifications Notifications, logger *log.Logger) {
	e.GET("/api/board", getBoard(board))
	e.POST("/api/projects", postProject(board))
	e.DELETE("/api/projects/:id", deleteProject(board))
	e.POST("/api/projects/:id/activate", activateProject(board))
	e.POST("/api/tasks", postTask(board))
	e.PATCH("/api/tasks/:id", patchTask(board, logger))
	e.DELETE("/api/tasks/:id", deleteTask(board))
	e.POST("/api/sprints/:id/activate", activateSprint(board))
	e.POST("/api/refresh", refreshCounts(board))
	e.GET("/api/notifications", getNotifications(notifications))
	e.GET("/healthz", healthz())
}

type boardResponse struct {
	Projects      []domain.Project `json:"projects"`
	Tasks         []domain.Task    `json:"tasks"`
	Sprints       []domain.Sprint  `json:"sprints"`
	ActiveProject *domain.Project  `json:"activeProject,omitempty"`
	ActiveSprint  *domain.Sprint   `json:"activeSprint,omitempty"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := boardResponse{
			Projects: board.Projects(),
			Tasks:    board.Tasks(),
			Sprints:  board.Sprints(),
		}
		if p, ok := board.ActiveProject(); ok {
			resp.ActiveProject = &p
		}
		if sp, ok := board.ActiveSprint(); ok {
			resp.ActiveSprint = &sp
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getNotifications(notifications Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, notifications.Recent())
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func pathRef(c echo.Context) (domain.Ref, bool) {
	return domain.ParseRef(c.Param("id"))
}

// storeStatus maps store errors onto gateway responses: unknown records
// are 404, preconditions 409, upstream failures 502.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrUnknownTask), errors.Is(err, store.ErrUnknownProject):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNoProject), errors.Is(err, store.ErrProjectPending):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func errJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, detailResponse{Detail: err.Error()})
}

// refreshCounts forces the task-count aggregation pass, for clients that
// want fresh aggregates without waiting for the next mutation.
func refreshCounts(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		board.RefreshTaskCounts(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}
}

type createProjectRequest struct {
	Name string `json:"name"`
}

func postProject(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid body"})
		}
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "name is required"})
		}
		project, err := board.CreateProject(c.Request().Context(), req.Name)
		if err != nil {
			return errJSON(c, storeStatus(err), err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func deleteProject(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, ok := pathRef(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid id"})
		}
		if err := board.DeleteProject(c.Request().Context(), ref); err != nil {
			return errJSON(c, storeStatus(err), err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func activateProject(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, ok := pathRef(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid id"})
		}
		board.SwitchProject(c.Request().Context(), ref)
		return c.NoContent(http.StatusNoContent)
	}
}

func activateSprint(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, ok := pathRef(c)
		if !ok || !ref.Confirmed() {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid id"})
		}
		board.SwitchSprint(c.Request().Context(), ref.ID)
		return c.NoContent(http.StatusNoContent)
	}
}

type createTaskRequest struct {
	Column      string     `json:"column"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Project     domain.Ref `json:"project"`
	Type        string     `json:"type"`
	DueDate     string     `json:"due_date"`
	Sprint      int64      `json:"sprint"`
}

func postTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid body"})
		}
		if req.Title == "" {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "title is required"})
		}
		column := domain.Status(req.Column)
		if req.Column != "" && !domain.ValidStatus(column) {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid column"})
		}
		task, err := board.CreateTask(c.Request().Context(), column, req.Title, req.Description, store.CreateTaskOptions{
			Project: req.Project,
			Type:    domain.IssueType(req.Type),
			DueDate: req.DueDate,
			Sprint:  req.Sprint,
		})
		if err != nil {
			return errJSON(c, storeStatus(err), err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

var patchFields = map[string]struct{}{
	"title": {}, "description": {}, "status": {}, "priority": {},
	"due_date": {}, "project": {}, "sprint": {},
}

// decodeTaskPatch keeps the tri-state semantics of a JSON merge patch:
// absent fields stay untouched, explicit nulls clear due_date and sprint.
func decodeTaskPatch(c echo.Context) (domain.TaskPatch, error) {
	var raw map[string]any
	if err := decodeBody(c, &raw); err != nil {
		return domain.TaskPatch{}, errors.New("invalid body")
	}
	var patch domain.TaskPatch
	for key, val := range raw {
		if _, known := patchFields[key]; !known {
			return domain.TaskPatch{}, errors.New("unknown field " + key)
		}
		switch key {
		case "title", "description":
			s, ok := val.(string)
			if !ok {
				return domain.TaskPatch{}, errors.New("invalid " + key)
			}
			if key == "title" {
				patch.Title = &s
			} else {
				patch.Description = &s
			}
		case "status":
			s, ok := val.(string)
			if !ok || !domain.ValidStatus(domain.Status(s)) {
				return domain.TaskPatch{}, errors.New("invalid status")
			}
			status := domain.Status(s)
			patch.Status = &status
		case "priority":
			s, ok := val.(string)
			if !ok || !domain.ValidPriority(domain.Priority(s)) {
				return domain.TaskPatch{}, errors.New("invalid priority")
			}
			priority := domain.Priority(s)
			patch.Priority = &priority
		case "due_date":
			if val == nil {
				empty := ""
				patch.DueDate = &empty
				continue
			}
			s, ok := val.(string)
			if !ok {
				return domain.TaskPatch{}, errors.New("invalid due_date")
			}
			patch.DueDate = &s
		case "project":
			n, ok := val.(float64)
			if !ok || n <= 0 {
				return domain.TaskPatch{}, errors.New("invalid project")
			}
			id := int64(n)
			patch.Project = &id
		case "sprint":
			if val == nil {
				var backlog int64
				patch.Sprint = &backlog
				continue
			}
			n, ok := val.(float64)
			if !ok || n <= 0 {
				return domain.TaskPatch{}, errors.New("invalid sprint")
			}
			id := int64(n)
			patch.Sprint = &id
		}
	}
	return patch, nil
}

func patchTask(board Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, ok := pathRef(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid id"})
		}
		patch, err := decodeTaskPatch(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: err.Error()})
		}
		task, err := board.UpdateTask(c.Request().Context(), ref, patch)
		if err != nil {
			logger.WithError(err).WithField("task", ref.String()).Debug("task update rejected")
			return errJSON(c, storeStatus(err), err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, ok := pathRef(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, detailResponse{Detail: "invalid id"})
		}
		if err := board.DeleteTask(c.Request().Context(), ref); err != nil {
			return errJSON(c, storeStatus(err), err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
