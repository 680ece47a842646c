package agent

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"bailu/internal/tools"
)

// Task is a tracked work item the model created for multi-step planning.
type Task struct {
	ID         int
	Content    string
	Status     string // pending, in_progress, completed
	ActiveForm string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskList backs the write_tasks/update_task/read_tasks tool trio via
// tools.TaskCallbacks, keeping task state in the agent package the same
// way conversation and checkpoint state live here rather than in tools.
type TaskList struct {
	mu    sync.Mutex
	tasks []Task
}

// NewTaskList creates an empty task list.
func NewTaskList() *TaskList {
	return &TaskList{}
}

// Callbacks returns the tools.TaskCallbacks bundle for registry wiring.
func (l *TaskList) Callbacks() tools.TaskCallbacks {
	return tools.TaskCallbacks{
		WriteTasks: l.write,
		UpdateTask: l.update,
		ReadTasks:  l.summary,
	}
}

func (l *TaskList) write(inputs []tools.TaskInput) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tasks = make([]Task, len(inputs))
	for i, in := range inputs {
		l.tasks[i] = Task{
			ID:         i + 1,
			Content:    in.Content,
			Status:     "pending",
			ActiveForm: in.ActiveForm,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return l.summaryLocked()
}

func (l *TaskList) update(id int, status string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch status {
	case "pending", "in_progress", "completed":
	default:
		return "", fmt.Errorf("invalid status %q (must be pending, in_progress, or completed)", status)
	}
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			l.tasks[i].Status = status
			l.tasks[i].UpdatedAt = time.Now()
			return l.summaryLocked(), nil
		}
	}
	return "", fmt.Errorf("task %d not found", id)
}

func (l *TaskList) summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked()
}

// Tasks returns a snapshot of the current task list.
func (l *TaskList) Tasks() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

func (l *TaskList) summaryLocked() string {
	if len(l.tasks) == 0 {
		return "No tasks."
	}

	var sb strings.Builder
	pending, inProgress, completed := 0, 0, 0
	for _, t := range l.tasks {
		switch t.Status {
		case "pending":
			pending++
			fmt.Fprintf(&sb, "  [ ] %d. %s\n", t.ID, t.Content)
		case "in_progress":
			inProgress++
			fmt.Fprintf(&sb, "  [~] %d. %s\n", t.ID, t.Content)
		case "completed":
			completed++
			fmt.Fprintf(&sb, "  [x] %d. %s\n", t.ID, t.Content)
		}
	}
	fmt.Fprintf(&sb, "\n%d tasks (%d pending, %d in progress, %d completed)",
		len(l.tasks), pending, inProgress, completed)
	return sb.String()
}
