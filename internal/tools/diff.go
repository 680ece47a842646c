package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type applyDiffInput struct {
	Path         string `mapstructure:"path"`
	Diff         string `mapstructure:"diff"`
	CreateBackup bool   `mapstructure:"create_backup"`
}

func applyDiffDef() ToolDefinition {
	return ToolDefinition{
		Name:        "apply_diff",
		Description: "Apply a unified diff (must contain at least one @@ hunk header) to a file. New-file creation is signaled with '--- /dev/null'. Mutating — subject to the safety policy.",
		Safe:        false,
		Parameters: []ToolParameter{
			{Name: "path", Type: TypeString, Description: "File path, relative to the workspace root", Required: true},
			{Name: "diff", Type: TypeString, Description: "Unified diff text", Required: true},
			{Name: "create_backup", Type: TypeBoolean, Description: "Write path.backup before mutating", Default: true},
		},
	}
}

func applyDiffHandler(_ context.Context, ec ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[applyDiffInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if in.Path == "" {
		return failure("invalid-arguments", "path is required")
	}
	if !strings.Contains(in.Diff, "@@") {
		return failure("invalid-arguments", "diff must contain at least one @@ hunk header")
	}

	absPath, err := ValidatePath(ec.WorkspaceRoot, in.Path)
	if err != nil {
		return failure("path-violation", err.Error())
	}

	isNewFile := strings.Contains(in.Diff, "--- /dev/null")

	var original []string
	existed := false
	if data, err := os.ReadFile(absPath); err == nil {
		existed = true
		original = splitLinesKeepEnding(string(data))
	} else if !os.IsNotExist(err) {
		return failuref("fs-fault", "%v", err)
	}
	if !existed && !isNewFile {
		return failuref("not-found", "%s does not exist (use '--- /dev/null' to create it)", in.Path)
	}

	newLines, added, removed, err := applyUnifiedDiff(original, in.Diff)
	if err != nil {
		return failuref("invalid-arguments", "%v", err)
	}
	newContent := strings.Join(newLines, "")

	createBackup := in.CreateBackup
	oldContent := strings.Join(original, "")

	confirm := &NeedsConfirmation{
		Tool:       "apply_diff",
		Path:       in.Path,
		OldContent: oldContent,
		NewContent: newContent,
		Execute: func() (ToolResult, error) {
			meta := map[string]any{
				"linesAdded":   added,
				"linesRemoved": removed,
			}
			var backupPath string
			if existed && createBackup {
				backupPath = absPath + ".backup"
				if err := os.WriteFile(backupPath, []byte(oldContent), 0o644); err != nil {
					return ToolResult{}, fmt.Errorf("fs-fault: write backup: %w", err)
				}
				meta["backup"] = backupPath
			}
			if err := AtomicWrite(absPath, []byte(newContent), 0o644); err != nil {
				if backupPath != "" {
					_ = os.WriteFile(absPath, []byte(oldContent), 0o644)
					return ToolResult{}, fmt.Errorf("fs-fault: %w (restored from backup)", err)
				}
				return ToolResult{}, fmt.Errorf("fs-fault: %w", err)
			}
			return success("applied diff to "+in.Path, meta), nil
		},
	}
	return ToolResult{Success: false, Error: confirm.Error(), Metadata: map[string]any{"confirm": confirm}}
}

// splitLinesKeepEnding splits text into lines, preserving the trailing
// newline on every line but the (possibly absent) final one, so joining
// the slice back reproduces the original bytes exactly.
func splitLinesKeepEnding(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:idx+1])
		text = text[idx+1:]
	}
	return lines
}

// applyUnifiedDiff walks original lines and diff lines in parallel per
// unified-diff convention: '+' emits, '-' skips an original line, ' ' copies a
// context line and advances, and each "@@ -a,b +c,d @@" header reseats
// the 1-based original-line cursor to a 0-based index.
func applyUnifiedDiff(original []string, diff string) (result []string, added, removed int, err error) {
	cursor := 0 // 0-based index into original
	scanner := bufio.NewScanner(strings.NewReader(diff))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var out []string
	sawHunk := false

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			continue
		case strings.HasPrefix(line, "@@"):
			sawHunk = true
			startLine, perr := parseHunkHeader(line)
			if perr != nil {
				return nil, 0, 0, perr
			}
			// copy any original lines before this hunk verbatim
			for cursor < startLine && cursor < len(original) {
				out = append(out, original[cursor])
				cursor++
			}
			cursor = startLine
		case strings.HasPrefix(line, "+"):
			out = append(out, line[1:]+"\n")
			added++
		case strings.HasPrefix(line, "-"):
			if cursor >= len(original) {
				return nil, 0, 0, fmt.Errorf("diff removes a line past end of file")
			}
			cursor++
			removed++
		case strings.HasPrefix(line, " "):
			if cursor >= len(original) {
				return nil, 0, 0, fmt.Errorf("diff context line past end of file")
			}
			out = append(out, original[cursor])
			cursor++
		case line == "":
			// blank lines inside the diff body are treated as empty context
			if cursor < len(original) {
				out = append(out, original[cursor])
				cursor++
			}
		default:
			return nil, 0, 0, fmt.Errorf("unrecognized diff line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, 0, err
	}
	if !sawHunk {
		return nil, 0, 0, fmt.Errorf("diff must contain at least one @@ hunk header")
	}

	for cursor < len(original) {
		out = append(out, original[cursor])
		cursor++
	}

	return ensureTrailingNewline(out, original), added, removed, nil
}

// ensureTrailingNewline restores a final line without a trailing newline
// when the original file also lacked one and the diff's last emitted
// line is otherwise identical in shape.
func ensureTrailingNewline(out, original []string) []string {
	if len(original) > 0 && !strings.HasSuffix(original[len(original)-1], "\n") {
		if len(out) > 0 && strings.HasSuffix(out[len(out)-1], "\n") && out[len(out)-1] == original[len(original)-1]+"\n" {
			out[len(out)-1] = strings.TrimSuffix(out[len(out)-1], "\n")
		}
	}
	return out
}

func parseHunkHeader(line string) (int, error) {
	// "@@ -l,s +l,s @@" or "@@ -l +l @@" — the cursor tracks the
	// *original* file, so reseat from the "-" side of the header.
	parts := strings.Fields(line)
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			spec := strings.TrimPrefix(p, "-")
			numStr, _, _ := strings.Cut(spec, ",")
			n, err := strconv.Atoi(numStr)
			if err != nil {
				return 0, fmt.Errorf("malformed hunk header %q: %w", line, err)
			}
			if n <= 0 {
				return 0, nil
			}
			return n - 1, nil
		}
	}
	return 0, fmt.Errorf("malformed hunk header %q: missing -start,count", line)
}
