package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskflowhq/taskflow/internal/runtime"
	"github.com/taskflowhq/taskflow/internal/store"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// TasksHandler exposes the task CRUD surface. Every route is owner-scoped
// through the auth middleware.
type TasksHandler struct {
	Store *store.Store
}

func (h *TasksHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *TasksHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	status := c.QueryParam("status")
	if status != "" && status != store.TaskStatusPending && status != store.TaskStatusCompleted {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "status must be 'pending' or 'completed'")
	}
	search := strings.TrimSpace(c.QueryParam("search"))
	tasks, err := h.Store.ListTasks(c.Request().Context(), userID, status, search)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TasksHandler) create(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "title is required")
	}
	if len(title) > maxTitleLen {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "title too long (max 200 chars)")
	}
	description := strings.TrimSpace(req.Description)
	if len(description) > maxDescriptionLen {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "description too long (max 1000 chars)")
	}
	t, err := h.Store.CreateTask(c.Request().Context(), userID, title, description)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

// taskID validates the path parameter; a malformed uuid is indistinguishable
// from a missing task.
func taskID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return id, nil
}

func (h *TasksHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	id, err := taskID(c)
	if err != nil {
		return err
	}
	t, err := h.Store.GetTask(c.Request().Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TasksHandler) update(c echo.Context) error {
	userID := c.Get("user_id").(string)
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "title is required")
		}
		if len(trimmed) > maxTitleLen {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "title too long (max 200 chars)")
		}
		req.Title = &trimmed
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if len(trimmed) > maxDescriptionLen {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "description too long (max 1000 chars)")
		}
		req.Description = &trimmed
	}

	if req.Status != nil {
		if *req.Status != store.TaskStatusCompleted {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "can only transition from pending to completed")
		}
		current, err := h.Store.GetTask(c.Request().Context(), userID, id)
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if current.Status != store.TaskStatusPending {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "can only transition from pending to completed")
		}
	}

	t, err := h.Store.PatchTask(c.Request().Context(), userID, id, req.Title, req.Description, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TasksHandler) delete(c echo.Context) error {
	userID := c.Get("user_id").(string)
	id, err := taskID(c)
	if err != nil {
		return err
	}
	err = h.Store.DeleteTask(c.Request().Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
