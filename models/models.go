package models

// Message is one turn in a model conversation. Role is system, user,
// assistant or tool. Assistant messages may carry tool calls instead of
// content; tool messages echo the id of the call they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its raw JSON argument bag.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition declares one callable operation to the model. The catalogue
// is sent verbatim on every request and must stay stable within a
// conversation.
type ToolDefinition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a tool's name, selection guidance and parameter schema.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters is the JSON-schema shaped argument declaration for a tool.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes a single tool argument.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// NewFunctionTool is a convenience constructor for function-type tools.
func NewFunctionTool(name, description string, params Parameters) ToolDefinition {
	return ToolDefinition{Type: "function", Function: Function{Name: name, Description: description, Parameters: params}}
}
