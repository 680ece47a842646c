package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bailu/internal/llm"
	"bailu/internal/mediator"
	"bailu/internal/parser"
	"bailu/internal/tools"
)

// sanityCeiling and warnAtIteration implement an "unbounded
// with a sanity ceiling" decision: the loop hard-stops at sanityCeiling
// and logs a one-time heads-up at warnAtIteration, well before that.
const (
	sanityCeiling           = 100
	warnAtIteration         = 80
	circuitBreakerThreshold = 3
)

// Logger is the minimal structured-logging surface the orchestrator
// needs, satisfied by *zap.SugaredLogger.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any) {}
func (noopLogger) Warnw(string, ...any) {}

// Sink receives orchestrator output for display: text as it streams in
// (with <action> blocks already filtered out), and notifications for
// each dispatched tool call and its result.
type Sink interface {
	Text(s string)
	AssistantPrefix()
	ToolCall(name string, params map[string]any)
	ToolResult(result tools.ToolResult)
	Warn(msg string)
}

// RunResult summarizes one Run invocation's outcome.
type RunResult struct {
	Success           bool
	FinalResponse     string
	Iterations        int
	ToolCallsExecuted int
	ActiveFiles       []string
	Err               error
}

// Orchestrator is the iteration driver. The REPL builds one instance and
// reuses it for every Run of a session; the touched-file set and last
// directory listing it keeps are not reset between runs.
type Orchestrator struct {
	client   llm.LLMClient
	registry *tools.Registry
	med      *mediator.Mediator
	logger   Logger

	activeFiles map[string]bool
	lastDirList string
	beforeWrite func(path string)
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

func WithLogger(l Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithFileObserver registers fn to be called with a write_file/apply_diff
// call's target path just before Run dispatches it, whether or not the
// call then succeeds — the hook a CheckpointTracker uses to snapshot the
// file's pre-mutation content via NoteWrite.
func WithFileObserver(fn func(path string)) Option {
	return func(o *Orchestrator) { o.beforeWrite = fn }
}

// New constructs an Orchestrator wired to client, registry, and med.
func New(client llm.LLMClient, registry *tools.Registry, med *mediator.Mediator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		registry:    registry,
		med:         med,
		logger:      noopLogger{},
		activeFiles: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives conv through the agent control loop until the model stops
// requesting tool calls, the circuit breaker trips, dry-run exits after
// its first iteration, or the sanity ceiling is reached.
func (o *Orchestrator) Run(ctx context.Context, ec tools.ExecutionContext, conv *Conversation, sink Sink) (result RunResult) {
	defer func() { result.ActiveFiles = o.sortedActiveFiles() }()

	o.prepareSystemMessage(conv)

	toolDefs := ToolDefsForLLM(o.registry.List())

	consecutiveFailures := 0
	var lastFailedTool string
	warned := false

	for iteration := 1; ; iteration++ {
		if conv.NeedsAutoCompaction() {
			conv.Compact()
			sink.Warn("Context is large, compacting conversation...")
		}

		events, err := o.client.StreamMessage(ctx, conv.Messages(), toolDefs)
		if err != nil {
			return RunResult{Success: false, Iterations: iteration, Err: fmt.Errorf("transport: %w", err)}
		}

		filter := &actionFilter{}
		prefixShown := false
		resp, err := llm.AccumulateStream(events, func(delta string) {
			visible := filter.Feed(delta)
			if visible == "" {
				return
			}
			if !prefixShown {
				sink.AssistantPrefix()
				prefixShown = true
			}
			sink.Text(visible)
		})
		if err != nil {
			return RunResult{Success: false, Iterations: iteration, Err: fmt.Errorf("transport: %w", err)}
		}

		// Dual-format support: native tool_calls from the transport are
		// serialized into the same <action> text (see llm.ToActionText)
		// before parsing, so the parser remains the single source of
		// tool invocations.
		fullText := llm.AppendActionText(resp.Message.ContentString(), resp.Message.ToolCalls)
		plaintext, calls := parser.Parse(fullText)

		if len(calls) == 0 {
			return RunResult{Success: true, FinalResponse: firstNonEmpty(plaintext, fullText), Iterations: iteration}
		}

		conv.Append(llm.TextMessage("assistant", fullText))

		toolCallsExecuted := 0
		var results []string
		skippedRemainder := false

		for i, call := range calls {
			toolCall := tools.ToolCall{Tool: call.Tool, Params: call.Params}
			sink.ToolCall(call.Tool, call.Params)
			o.notifyBeforeWrite(call.Tool, call.Params)

			result, dispatchErr := o.med.Dispatch(ctx, ec, toolCall)
			if dispatchErr != nil {
				return RunResult{Success: false, Iterations: iteration, ToolCallsExecuted: toolCallsExecuted, Err: dispatchErr}
			}
			sink.ToolResult(result)
			o.recordSideEffects(call.Tool, call.Params, result)

			toolCallsExecuted++
			results = append(results, formatToolResult(i, call.Tool, result))

			if result.Success {
				if call.Tool == lastFailedTool {
					consecutiveFailures = 0
				}
			} else {
				if call.Tool == lastFailedTool {
					consecutiveFailures++
				} else {
					consecutiveFailures = 1
					lastFailedTool = call.Tool
				}
				if !result.Success {
					skippedRemainder = i < len(calls)-1
					break
				}
			}
		}

		if len(results) > 0 {
			conv.Append(llm.TextMessage("user", strings.Join(results, "\n")))
		}
		if skippedRemainder {
			o.logger.Infow("remaining tool calls in this turn skipped after a failure", "tool", lastFailedTool)
		}

		if consecutiveFailures >= circuitBreakerThreshold {
			advisory := fmt.Sprintf("Stopped after %s failed %d times in a row.", lastFailedTool, consecutiveFailures)
			return RunResult{Success: true, FinalResponse: advisory, Iterations: iteration, ToolCallsExecuted: toolCallsExecuted}
		}

		if ec.SafetyMode == tools.ModeDryRun && iteration == 1 {
			return RunResult{Success: true, Iterations: iteration, ToolCallsExecuted: toolCallsExecuted}
		}

		if iteration == warnAtIteration && !warned {
			o.logger.Warnw("orchestrator approaching the sanity ceiling", "iteration", iteration, "ceiling", sanityCeiling)
			warned = true
		}
		if iteration >= sanityCeiling {
			return RunResult{
				Success:           true,
				FinalResponse:     "Stopped: reached the maximum iteration count for this turn.",
				Iterations:        iteration,
				ToolCallsExecuted: toolCallsExecuted,
			}
		}
	}
}

// prepareSystemMessage injects the tool-documentation appendix and the
// running memory summary into the system message, replacing any
// previous copy of each (idempotent via the sentinel comments).
func (o *Orchestrator) prepareSystemMessage(conv *Conversation) {
	msgs := conv.Messages()
	if len(msgs) == 0 || msgs[0].Role != "system" {
		return
	}
	content := msgs[0].ContentString()
	content = upsertSection(content, toolAppendixOpen, toolAppendixClose, buildToolAppendix(o.registry.List()))
	content = upsertSection(content, memoryOpen, memoryClose, buildMemorySection(o.sortedActiveFiles(), o.lastDirList))
	msgs[0] = llm.TextMessage("system", content)
}

// notifyBeforeWrite calls the registered file observer, if any, with a
// mutating call's target path before dispatch — so the observer can
// snapshot the file's content ahead of the mutation it is about to
// undergo, regardless of whether the call ultimately succeeds.
func (o *Orchestrator) notifyBeforeWrite(tool string, params map[string]any) {
	if o.beforeWrite == nil {
		return
	}
	switch tool {
	case "write_file", "apply_diff":
		if path, ok := params["path"].(string); ok {
			o.beforeWrite(path)
		}
	}
}

func (o *Orchestrator) recordSideEffects(tool string, params map[string]any, result tools.ToolResult) {
	if !result.Success {
		return
	}
	switch tool {
	case "write_file", "apply_diff":
		if path, ok := params["path"].(string); ok {
			o.activeFiles[path] = true
		}
	case "list_directory":
		o.lastDirList = result.Output
	}
}

func (o *Orchestrator) sortedActiveFiles() []string {
	out := make([]string, 0, len(o.activeFiles))
	for path := range o.activeFiles {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func formatToolResult(index int, tool string, result tools.ToolResult) string {
	if result.Success {
		return fmt.Sprintf("<tool_result index=%q tool=%q>%s</tool_result>", indexString(index), tool, result.Output)
	}
	return fmt.Sprintf("<tool_result index=%q tool=%q error=%q></tool_result>", indexString(index), tool, result.Error)
}

func indexString(i int) string {
	return fmt.Sprintf("%d", i)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
