package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/store"
)

// Executor translates one decoded tool call into exactly one store operation,
// scoped to the calling user. Every outcome, failure included, comes back as
// a serialized result the loop feeds to the model; nothing escapes as a Go
// error.
type Executor struct {
	Store  *store.Store
	Logger *log.Logger
}

func NewExecutor(st *store.Store, logger *log.Logger) *Executor {
	return &Executor{Store: st, Logger: logger}
}

type listTasksArgs struct {
	Status string `json:"status"`
}

type addTaskArgs struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type updateTaskArgs struct {
	TaskID      string  `json:"task_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type taskIDArgs struct {
	TaskID string `json:"task_id"`
}

// Execute runs one tool call and returns its result serialized as JSON.
func (e *Executor) Execute(ctx context.Context, userID, name string, args json.RawMessage) string {
	payload, err := e.dispatch(ctx, userID, name, args)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Printf("tool %s failed: %v", name, err)
		}
		toolCallsTotal.WithLabelValues(name, "error").Inc()
		return resultJSON(map[string]string{"status": "error", "message": err.Error()})
	}
	toolCallsTotal.WithLabelValues(name, "ok").Inc()
	return resultJSON(payload)
}

func (e *Executor) dispatch(ctx context.Context, userID, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolListTasks:
		var a listTasksArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return e.listTasks(ctx, userID, a)
	case ToolAddTask:
		var a addTaskArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return e.addTask(ctx, userID, a)
	case ToolUpdateTask:
		var a updateTaskArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return e.updateTask(ctx, userID, a)
	case ToolDeleteTask:
		var a taskIDArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return e.deleteTask(ctx, userID, a)
	case ToolCompleteTask:
		var a taskIDArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return e.completeTask(ctx, userID, a)
	case ToolDeleteAllTasks:
		n, err := e.Store.DeleteAllTasks(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": "deleted_all", "count": n}, nil
	case ToolCompleteAllTasks:
		n, err := e.Store.CompleteAllTasks(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": "completed_all", "count": n}, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (e *Executor) listTasks(ctx context.Context, userID string, a listTasksArgs) (interface{}, error) {
	if a.Status != "" && a.Status != store.TaskStatusPending && a.Status != store.TaskStatusCompleted {
		return nil, fmt.Errorf("status must be 'pending' or 'completed'")
	}
	tasks, err := e.Store.ListTasks(ctx, userID, a.Status, "")
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return map[string]interface{}{"status": "ok", "tasks": tasks, "count": len(tasks)}, nil
}

// Field limits shared with the REST surface; the tool folds violations into
// error results instead of letting the varchar constraint blow up.
const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

func (e *Executor) addTask(ctx context.Context, userID string, a addTaskArgs) (interface{}, error) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return nil, errors.New("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, fmt.Errorf("Title must be at most %d characters", maxTitleLen)
	}
	// description falls back to the title so it is never empty
	description := title
	if a.Description != nil && strings.TrimSpace(*a.Description) != "" {
		description = strings.TrimSpace(*a.Description)
	}
	if len(description) > maxDescriptionLen {
		return nil, fmt.Errorf("Description must be at most %d characters", maxDescriptionLen)
	}
	t, err := e.Store.CreateTask(ctx, userID, title, description)
	if err != nil {
		return nil, err
	}
	return map[string]string{"status": "created", "task_id": t.ID, "title": t.Title}, nil
}

func (e *Executor) updateTask(ctx context.Context, userID string, a updateTaskArgs) (interface{}, error) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return nil, errors.New("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, fmt.Errorf("Title must be at most %d characters", maxTitleLen)
	}
	var description *string
	if a.Description != nil {
		d := strings.TrimSpace(*a.Description)
		if len(d) > maxDescriptionLen {
			return nil, fmt.Errorf("Description must be at most %d characters", maxDescriptionLen)
		}
		description = &d
	}
	if err := validTaskID(a.TaskID); err != nil {
		return nil, err
	}
	t, err := e.Store.UpdateTask(ctx, userID, a.TaskID, title, description)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("Task not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]string{"status": "updated", "task_id": t.ID, "title": t.Title}, nil
}

func (e *Executor) deleteTask(ctx context.Context, userID string, a taskIDArgs) (interface{}, error) {
	if err := validTaskID(a.TaskID); err != nil {
		return nil, err
	}
	err := e.Store.DeleteTask(ctx, userID, a.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("Task not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]string{"status": "deleted", "task_id": a.TaskID}, nil
}

func (e *Executor) completeTask(ctx context.Context, userID string, a taskIDArgs) (interface{}, error) {
	if err := validTaskID(a.TaskID); err != nil {
		return nil, err
	}
	// no status precheck: re-completing an already completed task succeeds
	t, err := e.Store.CompleteTask(ctx, userID, a.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("Task not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]string{"status": "completed", "task_id": t.ID, "title": t.Title}, nil
}

// validTaskID rejects ids the model made up before they reach Postgres, where
// a malformed uuid would raise a type error instead of a clean miss.
func validTaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("Task not found")
	}
	return nil
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid tool arguments: %v", err)
	}
	return nil
}

func resultJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"status":"error","message":"failed to encode tool result"}`
	}
	return string(b)
}
