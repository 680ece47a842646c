// Package tools implements the tool surface: a name-keyed registry of
// file I/O, directory listing, diff application, and shell execution
// handlers, each guarded by workspace-relative path safety.
package tools

import (
	"context"
	"fmt"
)

// ParamType is the declared type of a ToolParameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ToolParameter describes one named input a tool accepts.
type ToolParameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     any
}

// ToolDefinition is the registry's unique key plus its documented schema.
// Safe is true iff the tool performs no observable side effect.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
	Safe        bool
}

// ToolCall is a structured invocation extracted by the parser.
type ToolCall struct {
	ID     string
	Tool   string
	Params map[string]any
}

// ToolResult is the normalized outcome of a tool handler.
type ToolResult struct {
	Success  bool
	Output   string
	Error    string
	Metadata map[string]any
}

// Handler is the signature every tool implementation satisfies. Handlers
// never need to distinguish workspace-relative from absolute paths
// themselves beyond calling ValidatePath; everything else is typed
// Go values already coerced and schema-validated by the caller.
type Handler func(ctx context.Context, ec ExecutionContext, params map[string]any) ToolResult

// NeedsConfirmation is returned by a mutating handler in the Metadata
// ["confirm"] entry of a failed ToolResult to signal that the safety
// policy (see internal/mediator) must approve before Execute runs. Tools never decide
// policy themselves — they only describe what they're about to do.
type NeedsConfirmation struct {
	Tool       string
	Path       string
	OldContent string // empty for new files
	NewContent string
	Execute    func() (ToolResult, error)
}

func (e *NeedsConfirmation) Error() string {
	return fmt.Sprintf("%s requires confirmation for %s", e.Tool, e.Path)
}

// ExecutionContext is immutable for the duration of one orchestrator run.
type ExecutionContext struct {
	WorkspaceRoot string
	SafetyMode    SafetyMode
	Verbose       bool
}

// SafetyMode selects how the mediator treats mutating tool calls.
type SafetyMode string

const (
	ModeDryRun    SafetyMode = "dry-run"
	ModeReview    SafetyMode = "review"
	ModeAutoApply SafetyMode = "auto-apply"
)

// ParseSafetyMode validates a string against the three known modes.
func ParseSafetyMode(s string) (SafetyMode, error) {
	switch SafetyMode(s) {
	case ModeDryRun, ModeReview, ModeAutoApply:
		return SafetyMode(s), nil
	default:
		return "", fmt.Errorf("invalid-arguments: unknown safety mode %q", s)
	}
}

func success(output string, metadata map[string]any) ToolResult {
	return ToolResult{Success: true, Output: output, Metadata: metadata}
}

func failure(code, msg string) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf("%s: %s", code, msg)}
}

func failuref(code, format string, args ...any) ToolResult {
	return failure(code, fmt.Sprintf(format, args...))
}
