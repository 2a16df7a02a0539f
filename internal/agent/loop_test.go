package agent

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/taskflowhq/taskflow/internal/store"
	"github.com/taskflowhq/taskflow/models"
)

// scriptedProvider replays a fixed sequence of model replies and records every
// request it receives.
type scriptedProvider struct {
	replies  []models.Message
	err      error
	requests [][]models.Message
	tools    [][]models.ToolDefinition
}

func (p *scriptedProvider) ChatCompletion(ctx context.Context, msgs []models.Message, tools []models.ToolDefinition) (models.Message, error) {
	snapshot := make([]models.Message, len(msgs))
	copy(snapshot, msgs)
	p.requests = append(p.requests, snapshot)
	p.tools = append(p.tools, tools)
	if p.err != nil {
		return models.Message{}, p.err
	}
	i := len(p.requests) - 1
	if i >= len(p.replies) {
		return p.replies[len(p.replies)-1], nil
	}
	return p.replies[i], nil
}

func newTestAgent(t *testing.T, p *scriptedProvider) (*Agent, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return New(p, NewExecutor(&store.Store{DB: db}, nil), nil), mock, func() { db.Close() }
}

func TestRunDirectReply(t *testing.T) {
	p := &scriptedProvider{replies: []models.Message{
		{Role: "assistant", Content: "You have no tasks yet."},
	}}
	a, _, closeFn := newTestAgent(t, p)
	defer closeFn()

	reply, err := a.Run(context.Background(), "user-1", nil, "anything on my plate?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "You have no tasks yet." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(p.requests) != 1 {
		t.Fatalf("expected a single model call, got %d", len(p.requests))
	}
	if len(p.tools[0]) != len(ToolDefinitions()) {
		t.Fatalf("full tool catalogue must be sent, got %d tools", len(p.tools[0]))
	}

	msgs := p.requests[0]
	if msgs[0].Role != "system" || msgs[0].Content != SystemPrompt {
		t.Fatalf("first message must be the system prompt")
	}
	if msgs[len(msgs)-1].Role != "user" || msgs[len(msgs)-1].Content != "anything on my plate?" {
		t.Fatalf("last message must be the user's message")
	}
}

func TestRunHistoryPrecedesUserMessage(t *testing.T) {
	p := &scriptedProvider{replies: []models.Message{{Role: "assistant", Content: "ok"}}}
	a, _, closeFn := newTestAgent(t, p)
	defer closeFn()

	history := []models.Message{
		{Role: "user", Content: "add milk"},
		{Role: "assistant", Content: "Added."},
	}
	if _, err := a.Run(context.Background(), "user-1", history, "and eggs"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := p.requests[0]
	if len(msgs) != 4 {
		t.Fatalf("expected system+history+user = 4 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "add milk" || msgs[2].Content != "Added." || msgs[3].Content != "and eggs" {
		t.Fatalf("history out of order: %+v", msgs)
	}
}

func TestRunExecutesToolCallsInOrder(t *testing.T) {
	p := &scriptedProvider{replies: []models.Message{
		{
			Role: "assistant",
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Type: "function", Function: models.FunctionCall{Name: ToolAddTask, Arguments: `{"title":"Buy milk"}`}},
				{ID: "call_2", Type: "function", Function: models.FunctionCall{Name: ToolListTasks, Arguments: `{}`}},
			},
		},
		{Role: "assistant", Content: "Added Buy milk. You now have 1 task."},
	}}
	a, mock, closeFn := newTestAgent(t, p)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tasks (user_id, title, description, status) VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`)).
		WithArgs("user-1", "Buy milk", "Buy milk", store.TaskStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("task-1", time.Now(), time.Now()))
	mock.ExpectQuery(`SELECT id, user_id, title, description, status, created_at, updated_at FROM tasks WHERE user_id=\$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "status", "created_at", "updated_at"}).
			AddRow("task-1", "user-1", "Buy milk", "Buy milk", store.TaskStatusPending, time.Now(), time.Now()))

	reply, err := a.Run(context.Background(), "user-1", nil, "add milk to my list")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "Added Buy milk. You now have 1 task." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(p.requests) != 2 {
		t.Fatalf("expected two model calls, got %d", len(p.requests))
	}

	// Second request must carry the assistant tool-call message followed by
	// one tool result per call, ids correlated, in issue order.
	msgs := p.requests[1]
	n := len(msgs)
	if msgs[n-3].Role != "assistant" || len(msgs[n-3].ToolCalls) != 2 {
		t.Fatalf("assistant tool-call message missing: %+v", msgs[n-3])
	}
	if msgs[n-2].Role != "tool" || msgs[n-2].ToolCallID != "call_1" {
		t.Fatalf("first tool result mismatched: %+v", msgs[n-2])
	}
	if msgs[n-1].Role != "tool" || msgs[n-1].ToolCallID != "call_2" {
		t.Fatalf("second tool result mismatched: %+v", msgs[n-1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunToolFailureFeedsBackToModel(t *testing.T) {
	p := &scriptedProvider{replies: []models.Message{
		{
			Role: "assistant",
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Type: "function", Function: models.FunctionCall{Name: ToolDeleteTask, Arguments: `{"task_id":"` + missingUUID + `"}`}},
			},
		},
		{Role: "assistant", Content: "I couldn't find that task."},
	}}
	a, mock, closeFn := newTestAgent(t, p)
	defer closeFn()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE id=$1 AND user_id=$2`)).
		WithArgs(missingUUID, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	reply, err := a.Run(context.Background(), "user-1", nil, "delete that task")
	if err != nil {
		t.Fatalf("tool failure must not abort the turn: %v", err)
	}
	if reply != "I couldn't find that task." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	msgs := p.requests[1]
	last := msgs[len(msgs)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("expected tool result message, got %+v", last)
	}
	res := decodeResult(t, last.Content)
	if res["status"] != "error" || res["message"] != "Task not found" {
		t.Fatalf("error must reach the model as a tool result: %+v", res)
	}
}

func TestRunIterationCeilingReturnsFallback(t *testing.T) {
	p := &scriptedProvider{replies: []models.Message{
		{
			Role: "assistant",
			ToolCalls: []models.ToolCall{
				{ID: "call_x", Type: "function", Function: models.FunctionCall{Name: ToolListTasks, Arguments: `{}`}},
			},
		},
	}}
	a, mock, closeFn := newTestAgent(t, p)
	defer closeFn()

	for i := 0; i < DefaultMaxIterations; i++ {
		mock.ExpectQuery(`SELECT id, user_id, title, description, status, created_at, updated_at FROM tasks WHERE user_id=\$1 ORDER BY created_at DESC`).
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "status", "created_at", "updated_at"}))
	}

	reply, err := a.Run(context.Background(), "user-1", nil, "loop forever")
	if err != nil {
		t.Fatalf("hitting the ceiling is not an error: %v", err)
	}
	if reply != FallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
	if len(p.requests) != DefaultMaxIterations {
		t.Fatalf("expected %d model calls, got %d", DefaultMaxIterations, len(p.requests))
	}
}

func TestRunProviderErrorAbortsTurn(t *testing.T) {
	p := &scriptedProvider{err: errors.New("upstream 500")}
	a, _, closeFn := newTestAgent(t, p)
	defer closeFn()

	_, err := a.Run(context.Background(), "user-1", nil, "hello")
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
	if !errors.Is(err, p.err) {
		t.Fatalf("provider error must be wrapped, got %v", err)
	}
}
