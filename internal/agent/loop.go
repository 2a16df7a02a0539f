package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/taskflowhq/taskflow/models"
	"github.com/taskflowhq/taskflow/provider"
)

// DefaultMaxIterations bounds the number of model round-trips within one chat
// turn. It is the only safeguard against a model that never stops requesting
// tools.
const DefaultMaxIterations = 6

// FallbackReply is returned when the iteration ceiling is hit without a
// direct answer. Hitting the ceiling is a degradation, not an error.
const FallbackReply = "I'm sorry, I couldn't complete that request. Please try again."

// Agent orchestrates one bounded conversation turn between the caller, the
// model and the tool executor.
type Agent struct {
	Provider      provider.Provider
	Executor      *Executor
	MaxIterations int
	Logger        *log.Logger
}

func New(p provider.Provider, ex *Executor, logger *log.Logger) *Agent {
	return &Agent{Provider: p, Executor: ex, MaxIterations: DefaultMaxIterations, Logger: logger}
}

// Run executes the agent loop for a single user message on top of the prior
// history and returns the model's final reply. Tool failures never abort the
// turn; they are fed back to the model as tool results. A provider failure
// does abort it.
func (a *Agent) Run(ctx context.Context, userID string, history []models.Message, userMessage string) (string, error) {
	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.Message{Role: "system", Content: SystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, models.Message{Role: "user", Content: userMessage})

	maxIterations := a.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	for i := 0; i < maxIterations; i++ {
		start := time.Now()
		reply, err := a.Provider.ChatCompletion(ctx, msgs, ToolDefinitions())
		llmRequestSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			chatTurnsTotal.WithLabelValues("error").Inc()
			return "", fmt.Errorf("model call failed: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			chatTurnsTotal.WithLabelValues("reply").Inc()
			return reply.Content, nil
		}

		// Keep the model's own tool-call message in place, then answer each
		// call in the order it was issued so ids stay correlated.
		msgs = append(msgs, reply)
		for _, tc := range reply.ToolCalls {
			if a.Logger != nil {
				a.Logger.Printf("tool call %s(%s)", tc.Function.Name, tc.Function.Arguments)
			}
			result := a.Executor.Execute(ctx, userID, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
			msgs = append(msgs, models.Message{Role: "tool", ToolCallID: tc.ID, Content: result})
		}
	}

	chatTurnsTotal.WithLabelValues("fallback").Inc()
	return FallbackReply, nil
}
