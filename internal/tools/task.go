package tools

import (
	"context"
	"fmt"
	"strings"
)

// TaskInput is the per-task shape accepted by write_tasks.
type TaskInput struct {
	Content     string `mapstructure:"content"`
	Description string `mapstructure:"description"`
	ActiveForm  string `mapstructure:"active_form"`
}

// TaskCallbacks breaks the circular dependency between tools and agent
// for task-list operations, mirroring ExploreFunc.
type TaskCallbacks struct {
	WriteTasks func(tasks []TaskInput) string
	UpdateTask func(id int, status string) (string, error)
	ReadTasks  func() string
}

// SetTaskCallbacks injects the task callbacks after construction.
func (r *Registry) SetTaskCallbacks(cb TaskCallbacks) {
	r.taskCallbacks = cb
}

func writeTasksDef() ToolDefinition {
	return ToolDefinition{
		Name:        "write_tasks",
		Description: "Replace the task list for planning multi-step work. Each task needs a short imperative content string and a detailed description. Mutating — subject to the safety policy.",
		Safe:        false,
		Parameters: []ToolParameter{
			{Name: "tasks", Type: TypeArray, Description: "Array of {content, description, active_form}", Required: true},
		},
	}
}

type writeTasksInput struct {
	Tasks []TaskInput `mapstructure:"tasks"`
}

func (r *Registry) writeTasksHandler(_ context.Context, _ ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[writeTasksInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if len(in.Tasks) == 0 {
		return failure("invalid-arguments", "tasks must not be empty")
	}
	for i, t := range in.Tasks {
		if t.Content == "" {
			return failuref("invalid-arguments", "task %d: content is required", i+1)
		}
		if t.Description == "" {
			return failuref("invalid-arguments", "task %d: description is required", i+1)
		}
	}
	if r.taskCallbacks.WriteTasks == nil {
		return failure("fs-fault", "task callbacks not configured")
	}

	confirm := &NeedsConfirmation{
		Tool:       "write_tasks",
		Path:       "task plan",
		OldContent: "",
		NewContent: formatTaskPreview(in.Tasks),
		Execute: func() (ToolResult, error) {
			return success(r.taskCallbacks.WriteTasks(in.Tasks), nil), nil
		},
	}
	return ToolResult{Success: false, Error: confirm.Error(), Metadata: map[string]any{"confirm": confirm}}
}

func formatTaskPreview(tasks []TaskInput) string {
	var sb strings.Builder
	for i, t := range tasks {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, t.Content)
	}
	fmt.Fprintf(&sb, "\n%d tasks", len(tasks))
	return sb.String()
}

func updateTaskDef() ToolDefinition {
	return ToolDefinition{
		Name:        "update_task",
		Description: "Update the status of a task by ID. Valid statuses: pending, in_progress, completed.",
		Safe:        true,
		Parameters: []ToolParameter{
			{Name: "id", Type: TypeNumber, Description: "Task ID", Required: true},
			{Name: "status", Type: TypeString, Description: "pending | in_progress | completed", Required: true},
		},
	}
}

type updateTaskInput struct {
	ID     int    `mapstructure:"id"`
	Status string `mapstructure:"status"`
}

func (r *Registry) updateTaskHandler(_ context.Context, _ ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[updateTaskInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if r.taskCallbacks.UpdateTask == nil {
		return failure("fs-fault", "task callbacks not configured")
	}
	out, err := r.taskCallbacks.UpdateTask(in.ID, in.Status)
	if err != nil {
		return failuref("invalid-arguments", "%v", err)
	}
	return success(out, nil)
}

func readTasksDef() ToolDefinition {
	return ToolDefinition{
		Name:        "read_tasks",
		Description: "Read the current task list. Rarely needed — task state is already in the system prompt.",
		Safe:        true,
	}
}

func (r *Registry) readTasksHandler(_ context.Context, _ ExecutionContext, _ map[string]any) ToolResult {
	if r.taskCallbacks.ReadTasks == nil {
		return failure("fs-fault", "task callbacks not configured")
	}
	return success(r.taskCallbacks.ReadTasks(), nil)
}
