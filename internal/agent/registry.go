package agent

import "github.com/taskflowhq/taskflow/models"

// Tool names. Every name declared here must have a matching branch in
// Executor.dispatch; the registry test enforces the lockstep.
const (
	ToolListTasks        = "list_tasks"
	ToolAddTask          = "add_task"
	ToolUpdateTask       = "update_task"
	ToolDeleteTask       = "delete_task"
	ToolCompleteTask     = "complete_task"
	ToolDeleteAllTasks   = "delete_all_tasks"
	ToolCompleteAllTasks = "complete_all_tasks"
)

var toolDefinitions = []models.ToolDefinition{
	models.NewFunctionTool(ToolListTasks,
		"List all tasks for the user, optionally filtered by status.",
		models.Parameters{
			Type: "object",
			Properties: map[string]models.Property{
				"status": {
					Type:        "string",
					Enum:        []string{"pending", "completed"},
					Description: "Filter by task status. Omit to list all tasks.",
				},
			},
			Required: []string{},
		}),
	models.NewFunctionTool(ToolAddTask,
		"Create a new task for the user.",
		models.Parameters{
			Type: "object",
			Properties: map[string]models.Property{
				"title":       {Type: "string", Description: "Task title (required, max 200 chars)."},
				"description": {Type: "string", Description: "Optional task description."},
			},
			Required: []string{"title"},
		}),
	models.NewFunctionTool(ToolUpdateTask,
		"Update a task's title and optionally its description.",
		models.Parameters{
			Type: "object",
			Properties: map[string]models.Property{
				"task_id":     {Type: "string", Description: "The UUID of the task to update."},
				"title":       {Type: "string", Description: "New title for the task."},
				"description": {Type: "string", Description: "New description for the task."},
			},
			Required: []string{"task_id", "title"},
		}),
	models.NewFunctionTool(ToolDeleteTask,
		"Permanently delete a specific task.",
		models.Parameters{
			Type: "object",
			Properties: map[string]models.Property{
				"task_id": {Type: "string", Description: "The UUID of the task to delete."},
			},
			Required: []string{"task_id"},
		}),
	models.NewFunctionTool(ToolCompleteTask,
		"Mark a specific task as completed.",
		models.Parameters{
			Type: "object",
			Properties: map[string]models.Property{
				"task_id": {Type: "string", Description: "The UUID of the task to mark as completed."},
			},
			Required: []string{"task_id"},
		}),
	models.NewFunctionTool(ToolDeleteAllTasks,
		"Delete ALL tasks for the user. Use only when the user explicitly asks to clear or delete all tasks.",
		models.Parameters{Type: "object", Properties: map[string]models.Property{}, Required: []string{}}),
	models.NewFunctionTool(ToolCompleteAllTasks,
		"Mark ALL pending tasks as completed for the user.",
		models.Parameters{Type: "object", Properties: map[string]models.Property{}, Required: []string{}}),
}

// ToolDefinitions returns the static tool catalogue sent to the model on
// every turn. It never changes within a conversation.
func ToolDefinitions() []models.ToolDefinition {
	return toolDefinitions
}
