package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

type writeFileInput struct {
	Path       string `mapstructure:"path"`
	Content    string `mapstructure:"content"`
	CreateDirs bool   `mapstructure:"create_dirs"`
}

func writeFileDef() ToolDefinition {
	return ToolDefinition{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content. Mutating — subject to the safety policy.",
		Safe:        false,
		Parameters: []ToolParameter{
			{Name: "path", Type: TypeString, Description: "File path, relative to the workspace root", Required: true},
			{Name: "content", Type: TypeString, Description: "Content to write", Required: true},
			{Name: "create_dirs", Type: TypeBoolean, Description: "Create parent directories if missing", Default: true},
		},
	}
}

// writeFileHandler never writes directly: it returns a *NeedsConfirmation
// wrapped in a ToolResult's Error path so the mediator can intercept it,
// run the approval prompt, and only then call Execute. The registry's
// Dispatch treats a *NeedsConfirmation the same as any failure unless the
// caller (the mediator) specifically unwraps it first.
func writeFileHandler(_ context.Context, ec ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[writeFileInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if in.Path == "" {
		return failure("invalid-arguments", "path is required")
	}

	absPath, err := ValidatePath(ec.WorkspaceRoot, in.Path)
	if err != nil {
		return failure("path-violation", err.Error())
	}

	oldContent := ""
	existed := false
	if data, err := os.ReadFile(absPath); err == nil {
		oldContent = string(data)
		existed = true
	}

	confirm := &NeedsConfirmation{
		Tool:       "write_file",
		Path:       in.Path,
		OldContent: oldContent,
		NewContent: in.Content,
		Execute: func() (ToolResult, error) {
			if in.CreateDirs {
				if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
					return ToolResult{}, err
				}
			}
			if err := AtomicWrite(absPath, []byte(in.Content), 0o644); err != nil {
				return ToolResult{}, err
			}
			return success("wrote "+in.Path, map[string]any{
				"bytes":   len(in.Content),
				"lines":   strings.Count(in.Content, "\n") + 1,
				"created": !existed,
			}), nil
		},
	}
	return ToolResult{Success: false, Error: confirm.Error(), Metadata: map[string]any{"confirm": confirm}}
}
