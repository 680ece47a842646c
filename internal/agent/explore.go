package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bailu/internal/llm"
	"bailu/internal/tools"
)

// maxExploreIterations bounds the explore sub-agent's own request/response
// loop, independent of the parent orchestrator's sanityCeiling.
const maxExploreIterations = 20

// ExploreStatus reports progress from a running explore sub-agent, so the
// parent orchestrator's Sink can surface it the same way it surfaces the
// main loop's tool calls.
type ExploreStatus interface {
	SubAgentToolCall(name, arguments string)
	SubAgentDone(toolCallCount int)
}

type noopExploreStatus struct{}

func (noopExploreStatus) SubAgentToolCall(string, string) {}
func (noopExploreStatus) SubAgentDone(int)                {}

// Explorer runs the read-only research sub-agent the explore tool
// delegates to. It uses the non-streaming SendMessage so its intermediate
// tool traffic never interleaves with the parent's live display.
type Explorer struct {
	client   llm.LLMClient
	registry *tools.Registry
	status   ExploreStatus
}

// NewExplorer builds an Explorer backed by a read-only registry rooted at
// workspaceRoot, independent of the parent run's full registry so the
// sub-agent can never mutate the workspace.
func NewExplorer(client llm.LLMClient, workspaceRoot string, status ExploreStatus) *Explorer {
	if status == nil {
		status = noopExploreStatus{}
	}
	return &Explorer{
		client:   client,
		registry: tools.NewReadOnlyRegistry(workspaceRoot),
		status:   status,
	}
}

// Func returns a tools.ExploreFunc bound to this Explorer, for
// registry.SetExploreFunc.
func (e *Explorer) Func() tools.ExploreFunc {
	return e.run
}

func (e *Explorer) run(ctx context.Context, task string) (string, error) {
	toolDefs := ToolDefsForLLM(e.registry.List())
	messages := []llm.Message{
		llm.TextMessage("system", exploreSystemPrompt),
		llm.TextMessage("user", task),
	}

	totalCalls := 0

	for iteration := 0; iteration < maxExploreIterations; iteration++ {
		resp, err := e.client.SendMessage(ctx, messages, toolDefs)
		if err != nil {
			return "", fmt.Errorf("explore sub-agent: %w", err)
		}
		messages = append(messages, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			e.status.SubAgentDone(totalCalls)
			return resp.Message.ContentString(), nil
		}

		outputs := make([]string, len(resp.Message.ToolCalls))
		group, gctx := errgroup.WithContext(ctx)
		ec := tools.ExecutionContext{WorkspaceRoot: e.registry.WorkDir(), SafetyMode: tools.ModeDryRun}

		for i, call := range resp.Message.ToolCalls {
			totalCalls++
			e.status.SubAgentToolCall(call.Function.Name, call.Function.Arguments)

			i, call := i, call
			group.Go(func() error {
				params, err := decodeToolArguments(call.Function.Arguments)
				if err != nil {
					outputs[i] = fmt.Sprintf("Error: %v", err)
					return nil
				}
				_, result := e.registry.Dispatch(gctx, ec, call.Function.Name, params)
				if !result.Success {
					outputs[i] = fmt.Sprintf("Error: %s", result.Error)
					return nil
				}
				outputs[i] = result.Output
				return nil
			})
		}
		_ = group.Wait() // each goroutine reports its own error inline, never fails the group

		for i, call := range resp.Message.ToolCalls {
			messages = append(messages, llm.ToolResultMessage(call.ID, outputs[i]))
		}
	}

	e.status.SubAgentDone(totalCalls)
	return "", fmt.Errorf("explore sub-agent: exceeded %d iterations without converging", maxExploreIterations)
}

func decodeToolArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("invalid-arguments: %w", err)
	}
	return params, nil
}

const exploreSystemPrompt = `You are an exploration sub-agent. Your job is to thoroughly research the codebase to answer the given question.

This is a READ-ONLY exploration task. You only have access to: list_directory and read_file.

Guidelines:
- Use list_directory for broad structure, then read_file once you know a specific path.
- Call multiple tools in parallel when you find several files worth reading at once.
- Start broad, then narrow down to specific reads.

When you have gathered enough information, provide a clear, structured summary of your findings. Do not ask follow-up questions — just research and report.`
