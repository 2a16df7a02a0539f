package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// Every tool advertised to the model must be executable: a definition without
// a dispatch branch would surface to users as "unknown tool" mid-conversation.
func TestEveryDeclaredToolHasAnExecutorBranch(t *testing.T) {
	ex, mock, closeFn := newMockExecutor(t)
	defer closeFn()

	// Tools that reach storage get a permissive empty result; argument
	// validation failures are fine, unknown-tool is not.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT id, user_id, title, description, status`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "status", "created_at", "updated_at"}))
	mock.ExpectExec(`DELETE FROM tasks WHERE user_id=\$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE tasks SET status=\$1, updated_at=now\(\) WHERE user_id=\$2`).WillReturnResult(sqlmock.NewResult(0, 0))

	for _, def := range ToolDefinitions() {
		name := def.Function.Name
		raw := ex.Execute(context.Background(), "user-1", name, json.RawMessage(`{}`))
		if strings.Contains(raw, "unknown tool") {
			t.Errorf("tool %q is declared but not dispatched", name)
		}
	}
}

func TestToolDefinitionsAreWellFormed(t *testing.T) {
	defs := ToolDefinitions()
	if len(defs) != 7 {
		t.Fatalf("expected 7 tools, got %d", len(defs))
	}
	seen := map[string]bool{}
	for _, def := range defs {
		if def.Type != "function" {
			t.Errorf("tool %q: type must be function, got %q", def.Function.Name, def.Type)
		}
		if def.Function.Name == "" || def.Function.Description == "" {
			t.Errorf("tool definition missing name or description: %+v", def)
		}
		if def.Function.Parameters.Type != "object" {
			t.Errorf("tool %q: parameters must be an object schema", def.Function.Name)
		}
		if seen[def.Function.Name] {
			t.Errorf("duplicate tool name %q", def.Function.Name)
		}
		seen[def.Function.Name] = true
		for _, req := range def.Function.Parameters.Required {
			if _, ok := def.Function.Parameters.Properties[req]; !ok {
				t.Errorf("tool %q: required field %q has no property schema", def.Function.Name, req)
			}
		}
	}
}
