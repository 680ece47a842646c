// Package ui provides terminal output formatting, colorized diffs, user
// prompts, keyboard interrupt handling, and all user-facing display
// logic for the REPL.
package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"bailu/internal/agent"
	"bailu/internal/llm"
	"bailu/internal/tools"
)

// ANSI color codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
	White   = "\033[97m"
)

// Terminal handles all user-facing output. It implements agent.Sink so
// the orchestrator can display directly through it.
type Terminal struct {
	color bool
}

var (
	_ agent.Sink          = (*Terminal)(nil)
	_ agent.ExploreStatus = (*Terminal)(nil)
)

// NewTerminal creates a terminal with color detection.
func NewTerminal() *Terminal {
	return &Terminal{color: isTerminal()}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func (t *Terminal) c(code, text string) string {
	if !t.color {
		return text
	}
	return code + text + Reset
}

// PrintBanner prints the startup banner.
func (t *Terminal) PrintBanner(model, workDir, version string) {
	banner := `
  _           _ _
 | |         (_) |
 | |__   __ _ _| |_   _
 | '_ \ / _` + "`" + ` | | | | | |
 | |_) | (_| | | | |_| |
 |_.__/ \__,_|_|_|\__,_|
`
	fmt.Print(t.c(Bold+Cyan, banner))

	versionStr := ""
	if version != "" && version != "dev" {
		versionStr = " v" + version
	}

	fmt.Println(t.c(Bold+White, "Bailu coding agent") + t.c(Gray, versionStr))
	fmt.Println()
	fmt.Println(t.c(Gray, "  Model:   ") + t.c(Cyan, model))
	fmt.Println(t.c(Gray, "  Dir:     ") + t.c(White, workDir))
	fmt.Println()
	fmt.Println(t.c(Gray, "  Type ") + t.c(Cyan, "/help") + t.c(Gray, " for commands"))
	fmt.Println()
}

// Prompt returns the formatted prompt string.
func (t *Terminal) Prompt() string {
	return t.c(Bold+Blue, "> ")
}

// PrintPrompt prints the input prompt.
func (t *Terminal) PrintPrompt() {
	fmt.Print(t.Prompt())
}

// ReadLine reads a line of input; the OS terminal handles line editing.
func (t *Terminal) ReadLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AssistantPrefix marks the start of a new assistant turn's visible text.
func (t *Terminal) AssistantPrefix() {}

// Text prints a chunk of assistant text as it streams in.
func (t *Terminal) Text(s string) {
	fmt.Print(s)
}

// PrintAssistantDone signals the end of assistant output.
func (t *Terminal) PrintAssistantDone() {
	fmt.Println()
	fmt.Println()
}

// ToolCall prints a tool invocation.
func (t *Terminal) ToolCall(name string, params map[string]any) {
	fmt.Println(t.c(Yellow, fmt.Sprintf("  ↳ %s", name)) + t.c(Gray, fmt.Sprintf(" %s", truncate(formatParams(params), 100))))
}

// ToolResult prints a tool's result, truncated to 5 lines.
func (t *Terminal) ToolResult(result tools.ToolResult) {
	text := result.Output
	if !result.Success {
		fmt.Println(t.c(Red, "    "+truncate(result.Error, 120)))
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		for _, line := range lines[:5] {
			fmt.Println(t.c(Gray, "    "+truncate(line, 120)))
		}
		fmt.Println(t.c(Gray, fmt.Sprintf("    ... (%d more lines)", len(lines)-5)))
	} else {
		for _, line := range lines {
			fmt.Println(t.c(Gray, "    "+truncate(line, 120)))
		}
	}
}

// Warn prints an advisory message (e.g. "compacting conversation").
func (t *Terminal) Warn(msg string) {
	fmt.Println(t.c(Yellow, msg))
}

// SubAgentToolCall prints an explore sub-agent's tool invocation with
// deeper indentation.
func (t *Terminal) SubAgentToolCall(name, arguments string) {
	fmt.Println(t.c(Dim+Yellow, fmt.Sprintf("      ↳ %s", name)) + t.c(Gray, fmt.Sprintf(" %s", truncate(arguments, 80))))
}

// SubAgentDone prints a sub-agent completion status line.
func (t *Terminal) SubAgentDone(toolCallCount int) {
	fmt.Println(t.c(Gray, fmt.Sprintf("      Explore complete (%d tool calls)", toolCallCount)))
}

func formatParams(params map[string]any) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}

// PrintError prints an error message to stderr.
func (t *Terminal) PrintError(err error) {
	fmt.Fprintln(os.Stderr, t.c(Red, "Error: "+err.Error()))
	fmt.Println()
}

// PrintWarning prints a warning message.
func (t *Terminal) PrintWarning(msg string) {
	fmt.Println(t.c(Yellow, "Warning: "+msg))
}

// PrintSpinner prints a thinking indicator.
func (t *Terminal) PrintSpinner() {
	fmt.Print(t.c(Gray, "  thinking..."))
}

// ClearSpinner clears the thinking indicator.
func (t *Terminal) ClearSpinner() {
	fmt.Print("\r\033[K")
}

// PrintHelp prints all available slash commands.
func (t *Terminal) PrintHelp() {
	fmt.Println(t.c(Bold, "Commands"))
	fmt.Println(t.c(Cyan, "  /help    ") + " Show this help message")
	fmt.Println(t.c(Cyan, "  /model   ") + " Switch LLM model")
	fmt.Println(t.c(Cyan, "  /compact ") + " Compact conversation history")
	fmt.Println(t.c(Cyan, "  /clear   ") + " Clear conversation history")
	fmt.Println(t.c(Cyan, "  /context ") + " Show context window usage")
	fmt.Println(t.c(Cyan, "  /tasks   ") + " Show current task list")
	fmt.Println(t.c(Cyan, "  /resume  ") + " Resume a previous session")
	fmt.Println(t.c(Cyan, "  /rewind  ") + " Rewind to a previous checkpoint")
	fmt.Println(t.c(Cyan, "  /stats   ") + " Show iteration/tool-call metrics")
	fmt.Println(t.c(Cyan, "  /quit    ") + " Exit Bailu")
	fmt.Println()
}

// ContextStats mirrors the figures agent.Conversation exposes for the
// /context slash command.
type ContextStats struct {
	EstimatedTokens int
	TokenBudget     int
	Threshold       int
	MessageCount    int
}

// PrintContextUsage prints context usage statistics.
func (t *Terminal) PrintContextUsage(s ContextStats) {
	fmt.Println(t.c(Bold, "Context usage"))
	pct := 0.0
	if s.TokenBudget > 0 {
		pct = float64(s.EstimatedTokens) / float64(s.TokenBudget) * 100
	}
	fmt.Printf("  Tokens: ~%s / %s (~%.1f%%)\n", formatNum(s.EstimatedTokens), formatNum(s.TokenBudget), pct)
	fmt.Printf("  Compact at: %s (80%%)\n", formatNum(s.Threshold))
	fmt.Printf("  Messages: %d\n", s.MessageCount)
	fmt.Println()
}

func formatNum(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// PrintConversationHistory replays a stored conversation to the terminal.
func (t *Terminal) PrintConversationHistory(messages []llm.Message) {
	fmt.Println(t.c(Gray, "--- Conversation history ---"))
	fmt.Println()
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			continue
		case "user":
			if msg.ToolCallID != "" {
				continue
			}
			if msg.Content != nil && *msg.Content != "" {
				fmt.Println(t.c(Bold+Blue, "> ") + *msg.Content)
				fmt.Println()
			}
		case "assistant":
			if msg.Content != nil && *msg.Content != "" {
				t.Text(*msg.Content)
				t.PrintAssistantDone()
			}
			for _, tc := range msg.ToolCalls {
				t.ToolCall(tc.Function.Name, map[string]any{"arguments": tc.Function.Arguments})
			}
		case "tool":
			if msg.Content != nil {
				t.ToolResult(tools.ToolResult{Success: true, Output: *msg.Content})
			}
		}
	}
	fmt.Println(t.c(Gray, "--- End of history ---"))
	fmt.Println()
}

// SessionListItem represents a session entry for display.
type SessionListItem struct {
	ID       string
	Updated  time.Time
	Preview  string
	MsgCount int
}

// PrintSessionList displays a numbered list of recent sessions.
func (t *Terminal) PrintSessionList(items []SessionListItem) {
	fmt.Println(t.c(Bold, "Recent sessions:"))
	for i, item := range items {
		age := formatAge(item.Updated)
		preview := item.Preview
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		fmt.Printf("  %s  %s  %s  %s\n",
			t.c(Cyan, fmt.Sprintf("[%d]", i+1)),
			t.c(Gray, fmt.Sprintf("%-8s", age)),
			t.c(White, fmt.Sprintf("%q", preview)),
			t.c(Gray, fmt.Sprintf("(%d messages)", item.MsgCount)),
		)
	}
	fmt.Println(t.c(Gray, "  Ctrl+C to cancel"))
	fmt.Println()
}

// PrintSessionResumed confirms which session was loaded.
func (t *Terminal) PrintSessionResumed(id string) {
	fmt.Println(t.c(Green, "Resumed session ") + t.c(Bold, id))
	fmt.Println()
}

func formatAge(tm time.Time) string {
	d := time.Since(tm)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// CheckpointListItem represents a checkpoint entry for display.
type CheckpointListItem struct {
	Turn      int
	Timestamp time.Time
	Preview   string
}

// PrintCheckpointList displays a numbered list of checkpoints.
func (t *Terminal) PrintCheckpointList(items []CheckpointListItem) {
	fmt.Println(t.c(Bold, "Checkpoints:"))
	for _, item := range items {
		age := formatAge(item.Timestamp)
		preview := item.Preview
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		fmt.Printf("  %s  %s  %s\n",
			t.c(Cyan, fmt.Sprintf("[%d]", item.Turn)),
			t.c(Gray, fmt.Sprintf("%-8s", age)),
			t.c(White, fmt.Sprintf("%q", preview)),
		)
	}
	fmt.Println(t.c(Gray, "  Ctrl+C to cancel"))
	fmt.Println()
}

// PrintRewindActions displays the rewind action menu.
func (t *Terminal) PrintRewindActions() {
	fmt.Println(t.c(Bold, "Choose action:"))
	fmt.Printf("  %s  Restore code and conversation\n", t.c(Cyan, "[1]"))
	fmt.Printf("  %s  Restore conversation only\n", t.c(Cyan, "[2]"))
	fmt.Printf("  %s  Restore code only\n", t.c(Cyan, "[3]"))
	fmt.Printf("  %s  Never mind\n", t.c(Cyan, "[4]"))
	fmt.Println()
}

// PrintRewindComplete prints a confirmation message after a rewind.
func (t *Terminal) PrintRewindComplete(action string) {
	fmt.Println(t.c(Green, fmt.Sprintf("Rewind complete: %s", action)))
	fmt.Println()
}

// TaskListItem represents a task entry for display.
type TaskListItem struct {
	ID         int
	Content    string
	Status     string
	ActiveForm string
}

// PrintTaskList displays the current task list grouped by status.
func (t *Terminal) PrintTaskList(tasksList []TaskListItem) {
	fmt.Println(t.c(Bold, "Tasks"))

	pending, inProgress, completed := 0, 0, 0
	for _, task := range tasksList {
		var marker string
		switch task.Status {
		case "in_progress":
			inProgress++
			marker = t.c(Yellow, "● ")
		case "completed":
			completed++
			marker = t.c(Green, "✓ ")
		default:
			pending++
			marker = t.c(Cyan, "○ ")
		}
		fmt.Printf("  %s%s %s\n", marker, t.c(Gray, fmt.Sprintf("[%d]", task.ID)), task.Content)
	}
	fmt.Println()
	fmt.Printf("  %d tasks (%d pending, %d in progress, %d completed)\n",
		len(tasksList), pending, inProgress, completed)
	fmt.Println()
}

// PrintStats displays the /stats slash command's metrics snapshot.
func (t *Terminal) PrintStats(iterations, toolCalls, estimatedTokens int) {
	fmt.Println(t.c(Bold, "Session stats"))
	fmt.Printf("  Iterations run: %d\n", iterations)
	fmt.Printf("  Tool calls executed: %d\n", toolCalls)
	fmt.Printf("  Estimated tokens: ~%s\n", formatNum(estimatedTokens))
	fmt.Println()
}
