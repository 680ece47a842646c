package tools

import (
	"bufio"
	"bytes"
	"context"
	"os"
)

type readFileInput struct {
	Path     string `mapstructure:"path"`
	Encoding string `mapstructure:"encoding"`
}

func readFileDef() ToolDefinition {
	return ToolDefinition{
		Name:        "read_file",
		Description: "Read a file's contents. Returns the full text; metadata reports size and line count.",
		Safe:        true,
		Parameters: []ToolParameter{
			{Name: "path", Type: TypeString, Description: "File path, relative to the workspace root", Required: true},
			{Name: "encoding", Type: TypeString, Description: "Text encoding (default: utf-8)"},
		},
	}
}

func readFileHandler(_ context.Context, ec ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[readFileInput](params)
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

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return failuref("not-found", "%s does not exist", in.Path)
		}
		if os.IsPermission(err) {
			return failuref("permission-denied", "%s: %v", in.Path, err)
		}
		return failuref("fs-fault", "%v", err)
	}

	lines := countLines(data)
	return success(string(data), map[string]any{
		"size":  len(data),
		"lines": lines,
	})
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n
}
