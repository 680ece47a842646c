// Package mediator implements the safety policy that wraps every tool
// dispatch: dry-run simulation, review-mode approval prompts,
// backup-before-mutate, and rollback offers on failure.
package mediator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bailu/internal/tools"
)

// ErrQuit is returned by Dispatch when the user chose "q" at the
// approval prompt; the orchestrator must terminate the whole process
// cleanly on receiving it.
var ErrQuit = errors.New("mediator: user requested quit")

// Logger is the minimal structured-logging surface the mediator needs,
// satisfied by *zap.SugaredLogger.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any) {}

// Mediator wraps a tool Registry with the policy, backup, confirmation,
// and rollback behavior kept as a distinct component from the
// orchestrator's own iteration loop.
type Mediator struct {
	registry *tools.Registry
	backups  *BackupStore
	rawMode  RawModeController
	logger   Logger
	in       *bufio.Reader
	out      io.Writer
}

// Option configures optional Mediator collaborators.
type Option func(*Mediator)

// WithRawModeController wires in the REPL's raw-mode pause/resume hooks.
func WithRawModeController(c RawModeController) Option {
	return func(m *Mediator) { m.rawMode = c }
}

// WithLogger wires in structured logging for policy decisions.
func WithLogger(l Logger) Option {
	return func(m *Mediator) { m.logger = l }
}

// WithIO overrides the prompt's input/output streams (tests).
func WithIO(out io.Writer, in io.Reader) Option {
	return func(m *Mediator) {
		m.out = out
		m.in = bufio.NewReader(in)
	}
}

// New constructs a Mediator dispatching through registry.
func New(registry *tools.Registry, backups *BackupStore, opts ...Option) *Mediator {
	m := &Mediator{
		registry: registry,
		backups:  backups,
		rawMode:  noopRawMode{},
		logger:   noopLogger{},
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch resolves, validates, and runs one tool call under
// ec.SafetyMode, per the per-call dispatch algorithm. The only errors
// it returns are ErrQuit and a failure to read the approval prompt's
// input; every other outcome — including
// user-cancelled and a completed rollback — is encoded in the returned
// ToolResult so the orchestrator can feed it back to the model.
func (m *Mediator) Dispatch(ctx context.Context, ec tools.ExecutionContext, call tools.ToolCall) (tools.ToolResult, error) {
	def, _, ok := m.registry.Get(call.Tool)
	if !ok {
		return tools.ToolResult{Success: false, Error: fmt.Sprintf("unknown-tool: %s", call.Tool)}, nil
	}

	if _, err := m.registry.Validate(call.Tool, call.Params); err != nil {
		return tools.ToolResult{Success: false, Error: err.Error()}, nil
	}

	if ec.SafetyMode == tools.ModeDryRun {
		m.logger.Infow("dry-run: simulated tool call", "tool", call.Tool, "params", call.Params)
		return tools.ToolResult{Success: true, Output: "simulated"}, nil
	}

	_, result := m.registry.Dispatch(ctx, ec, call.Tool, call.Params)

	confirm, ok := extractConfirm(result)
	if !ok {
		// A read-only tool, or a mutating tool that failed outright
		// before reaching its confirmation step.
		return result, nil
	}

	if ec.SafetyMode == tools.ModeReview && !def.Safe {
		approved, err := m.approve(def.Name, confirm.Path, confirm.OldContent, confirm.NewContent)
		if err != nil {
			return tools.ToolResult{}, err
		}
		if !approved {
			return tools.ToolResult{Success: false, Error: "user-cancelled"}, nil
		}
		m.logger.Infow("review: approved", "tool", call.Tool, "path", confirm.Path)
	} else {
		m.logger.Infow("[auto]", "tool", call.Tool, "path", confirm.Path)
	}

	return m.runMutation(ec, confirm)
}

// runMutation backs up the target file (if it exists), runs the
// confirmed handler, and — on failure with a backup available — offers
// or notes a rollback offer.
func (m *Mediator) runMutation(ec tools.ExecutionContext, confirm *tools.NeedsConfirmation) (tools.ToolResult, error) {
	absPath, pathErr := tools.ValidatePath(m.registry.WorkDir(), confirm.Path)

	var backup *BackupRecord
	if pathErr == nil {
		if _, err := os.Stat(absPath); err == nil {
			if b, err := m.backups.Create(confirm.Tool, absPath, confirm.OldContent); err == nil {
				backup = b
			}
		}
	}

	result, err := confirm.Execute()
	if err != nil {
		result = tools.ToolResult{Success: false, Error: err.Error()}
	}

	if !result.Success && backup != nil {
		if ec.SafetyMode == tools.ModeReview {
			if m.offerRollback(confirm.Path) {
				if _, rerr := Restore(backup); rerr != nil {
					result.Error = fmt.Sprintf("%s (rollback also failed: %s)", result.Error, rerr)
				} else {
					result.Error = fmt.Sprintf("%s (rolled back)", result.Error)
				}
			}
		} else {
			result.Error = fmt.Sprintf("%s (recoverable: a backup exists at %s)", result.Error, backup.BackupPath)
		}
	}

	return result, nil
}

// extractConfirm unwraps the *tools.NeedsConfirmation a mutating
// handler stashes in ToolResult.Metadata["confirm"] rather than
// invoking the mutation directly.
func extractConfirm(result tools.ToolResult) (*tools.NeedsConfirmation, bool) {
	if result.Metadata == nil {
		return nil, false
	}
	confirm, ok := result.Metadata["confirm"].(*tools.NeedsConfirmation)
	return confirm, ok
}
