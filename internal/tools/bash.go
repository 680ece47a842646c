package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type runCommandInput struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Cwd     string   `mapstructure:"cwd"`
	Timeout int      `mapstructure:"timeout"`
}

const (
	defaultCommandTimeout = 300 // seconds, default 5 minutes
	maxOutputBytes        = 20 * 1024 * 1024
)

func runCommandDef() ToolDefinition {
	return ToolDefinition{
		Name:        "run_command",
		Description: "Execute a shell command in the workspace. Destructive command prefixes are blocked before execution. Mutating — subject to the safety policy.",
		Safe:        false,
		Parameters: []ToolParameter{
			{Name: "command", Type: TypeString, Description: "Shell command to execute", Required: true},
			{Name: "args", Type: TypeArray, Description: "Additional arguments appended to command"},
			{Name: "cwd", Type: TypeString, Description: "Working directory, relative to the workspace root"},
			{Name: "timeout", Type: TypeNumber, Description: "Wall-clock timeout in seconds (default 300)"},
		},
	}
}

func runCommandHandler(_ context.Context, ec ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[runCommandInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if strings.TrimSpace(in.Command) == "" {
		return failure("invalid-arguments", "command is required")
	}

	fullCommand := in.Command
	if len(in.Args) > 0 {
		fullCommand = in.Command + " " + strings.Join(in.Args, " ")
	}

	if blocked, prefix := isBlocked(fullCommand); blocked {
		return failuref("blocked", "command prefix %q is not permitted", prefix)
	}

	workDir := ec.WorkspaceRoot
	if in.Cwd != "" {
		absPath, err := ValidatePath(ec.WorkspaceRoot, in.Cwd)
		if err != nil {
			return failure("path-violation", err.Error())
		}
		workDir = absPath
	}

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	confirm := &NeedsConfirmation{
		Tool:       "run_command",
		Path:       fullCommand,
		OldContent: "",
		NewContent: fullCommand,
		Execute: func() (ToolResult, error) {
			return executeCommand(workDir, fullCommand, timeout)
		},
	}
	return ToolResult{Success: false, Error: confirm.Error(), Metadata: map[string]any{"confirm": confirm}}
}

func executeCommand(workDir, command string, timeoutSeconds int) (ToolResult, error) {
	execCtx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "bash", "-c", command)
	}
	cmd.Dir = workDir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return ToolResult{Success: false, Error: fmt.Sprintf("fs-fault: %v", err)}, nil
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return ToolResult{Success: false, Error: fmt.Sprintf("fs-fault: %v", err)}, nil
	}

	var stdout, stderr bytes.Buffer
	if err := cmd.Start(); err != nil {
		return ToolResult{Success: false, Error: fmt.Sprintf("fs-fault: %v", err)}, nil
	}

	// Drain stdout and stderr concurrently so a command that fills one
	// pipe's OS buffer without being read can't deadlock the other.
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&capped{buf: &stdout, limit: maxOutputBytes}, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&capped{buf: &stderr, limit: maxOutputBytes}, stderrPipe)
		return err
	})
	_ = g.Wait() // pipe-copy errors are secondary to cmd.Wait()'s exit status

	runErr := cmd.Wait()
	timedOut := execCtx.Err() == context.DeadlineExceeded

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			exitCode = -1
		}
	}

	meta := map[string]any{
		"exitCode": exitCode,
		"stderr":   stderr.String(),
		"timedOut": timedOut,
	}

	if timedOut {
		return ToolResult{Success: false, Error: "timeout: command exceeded wall-clock limit", Metadata: meta}, nil
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return ToolResult{Success: false, Error: fmt.Sprintf("fs-fault: %v", runErr), Metadata: meta}, nil
		}
	}
	if exitCode != 0 {
		return ToolResult{Success: false, Output: stdout.String(), Error: fmt.Sprintf("fs-fault: command exited with status %d", exitCode), Metadata: meta}, nil
	}
	return ToolResult{Success: true, Output: stdout.String(), Metadata: meta}, nil
}

// capped is an io.Writer that silently discards bytes past limit, so a
// runaway command can never exhaust memory.
type capped struct {
	buf   *bytes.Buffer
	limit int
}

func (c *capped) Write(p []byte) (int, error) {
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}
