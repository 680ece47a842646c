package tools

import "context"

// ExploreFunc delegates a broad research question to a read-only
// sub-agent, breaking the circular dependency between tools and agent
// (the agent package owns the sub-agent loop; the registry only needs a
// callback to reach it).
type ExploreFunc func(ctx context.Context, task string) (string, error)

// SetExploreFunc injects the explore callback after construction.
func (r *Registry) SetExploreFunc(fn ExploreFunc) {
	r.exploreFunc = fn
}

func exploreDef() ToolDefinition {
	return ToolDefinition{
		Name: "explore",
		Description: "Delegate a broad codebase research question to a read-only sub-agent " +
			"(list_directory and read_file only). Use for 'how does X work?' or 'find all Y' questions " +
			"instead of cluttering the main conversation with intermediate search results.",
		Safe: true,
		Parameters: []ToolParameter{
			{Name: "task", Type: TypeString, Description: "What to research", Required: true},
		},
	}
}

type exploreInput struct {
	Task string `mapstructure:"task"`
}

func (r *Registry) exploreHandler(ctx context.Context, _ ExecutionContext, params map[string]any) ToolResult {
	in, err := decodeParams[exploreInput](params)
	if err != nil {
		return failure("invalid-arguments", err.Error())
	}
	if in.Task == "" {
		return failure("invalid-arguments", "task is required")
	}
	if r.exploreFunc == nil {
		return failure("fs-fault", "explore sub-agent not configured")
	}
	out, err := r.exploreFunc(ctx, in.Task)
	if err != nil {
		return failuref("transport", "%v", err)
	}
	return success(out, nil)
}
