package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type listDirectoryInput struct {
	Path          string `mapstructure:"path"`
	Recursive     bool   `mapstructure:"recursive"`
	IncludeHidden bool   `mapstructure:"include_hidden"`
}

func listDirectoryDef() ToolDefinition {
	return ToolDefinition{
		Name:        "list_directory",
		Description: "List directory contents. Directories are suffixed with '/'. Returns entries newline-joined.",
		Safe:        true,
		Parameters: []ToolParameter{
			{Name: "path", Type: TypeString, Description: "Directory path (default: workspace root)"},
			{Name: "recursive", Type: TypeBoolean, Description: "Recurse into subdirectories", Default: false},
			{Name: "include_hidden", Type: TypeBoolean, Description: "Include dotfiles", Default: false},
		},
	}
}

func listDirectoryHandler(_ context.Context, ec ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[listDirectoryInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}

	dir := ec.WorkspaceRoot
	if in.Path != "" {
		absPath, err := ValidatePath(ec.WorkspaceRoot, in.Path)
		if err != nil {
			return failure("path-violation", err.Error())
		}
		dir = absPath
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return failuref("not-found", "%s does not exist", in.Path)
		}
		return failuref("fs-fault", "%v", err)
	}
	if !info.IsDir() {
		return failuref("invalid-arguments", "%s is not a directory", in.Path)
	}

	var entries []string
	if in.Recursive {
		err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == dir {
				return nil
			}
			if !in.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(dir, p)
			if d.IsDir() {
				rel += "/"
			}
			entries = append(entries, rel)
			return nil
		})
		if err != nil {
			return failuref("fs-fault", "%v", err)
		}
	} else {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return failuref("fs-fault", "%v", err)
		}
		for _, e := range dirEntries {
			if !in.IncludeHidden && strings.HasPrefix(e.Name(), ".") {
				continue
			}
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			entries = append(entries, name)
		}
	}

	sort.Strings(entries)
	return success(strings.Join(entries, "\n"), map[string]any{
		"count": len(entries),
	})
}
