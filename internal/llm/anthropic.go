package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicClient implements LLMClient for the Anthropic Messages API via
// the official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     retryConfig
}

// NewAnthropicClient creates an Anthropic-backed client.
func NewAnthropicClient(apiKey, model, baseURL string, maxTokens int) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		retry:     defaultRetryConfig(),
	}
}

func (c *AnthropicClient) CurrentModel() string { return c.model }

func (c *AnthropicClient) ListModels(_ context.Context) ([]string, error) {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
		"claude-3-5-sonnet-20241022",
		"claude-3-haiku-20240307",
	}, nil
}

func (c *AnthropicClient) buildParams(messages []Message, tools []ToolDef) (anthropic.MessageNewParams, error) {
	system, msgs, err := convertToAnthropicMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		toolParams, err := convertToAnthropicTools(tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = toolParams
	}
	return params, nil
}

func (c *AnthropicClient) SendMessage(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	params, err := c.buildParams(messages, tools)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}

	var msg *anthropic.Message
	err = withRetry(ctx, c.retry, func() error {
		m, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	return anthropicResponseToInternal(msg), nil
}

func (c *AnthropicClient) StreamMessage(ctx context.Context, messages []Message, tools []ToolDef) (<-chan StreamEvent, error) {
	params, err := c.buildParams(messages, tools)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)

		err := withRetry(ctx, c.retry, func() error {
			s := c.client.Messages.NewStreaming(ctx, params)
			return processAnthropicStream(s, events)
		})
		if err != nil {
			events <- StreamEvent{Err: fmt.Errorf("anthropic: %w", err), Done: true}
		}
	}()
	return events, nil
}

// processAnthropicStream drains one SSE stream into events, returning an
// error only for transport-level failures so withRetry can decide whether
// to re-establish the stream. Events already emitted to the channel before
// a transport failure are not re-sent on retry — only connection
// establishment, not partial streaming progress, is retried.
func processAnthropicStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], events chan<- StreamEvent) error {
	toolIndex := -1
	var currentArgs strings.Builder
	var currentID, currentName string
	inToolUse := false

	flushTool := func() {
		if inToolUse {
			events <- StreamEvent{ToolCallDeltas: []ToolCallDelta{{
				Index: toolIndex, ID: currentID, Name: currentName, Arguments: currentArgs.String(),
			}}}
			inToolUse = false
			currentArgs.Reset()
			currentID, currentName = "", ""
		}
	}

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				tu := block.AsToolUse()
				toolIndex++
				inToolUse = true
				currentID, currentName = tu.ID, tu.Name
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					events <- StreamEvent{TextDelta: delta.Text}
				}
			case "input_json_delta":
				currentArgs.WriteString(delta.PartialJSON)
			}
		case "content_block_stop":
			flushTool()
		case "message_delta":
			if reason := event.AsMessageDelta().Delta.StopReason; reason != "" {
				events <- StreamEvent{FinishReason: string(reason)}
			}
		case "message_stop":
			events <- StreamEvent{Done: true}
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	events <- StreamEvent{Done: true}
	return nil
}

func anthropicResponseToInternal(msg *anthropic.Message) *Response {
	var text string
	var calls []ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			calls = append(calls, ToolCall{
				ID: tu.ID,
				Function: FunctionCall{
					Name:      tu.Name,
					Arguments: string(tu.Input),
				},
			})
		}
	}

	var contentPtr *string
	if text != "" {
		contentPtr = &text
	}

	return &Response{
		Message:      AssistantMessage(contentPtr, calls),
		FinishReason: string(msg.StopReason),
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func convertToAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	var system string
	var result []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.ContentString()
		case "user":
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.ContentString())))
		case "tool":
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.ContentString(), false),
			))
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != nil && *m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(*m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
					return "", nil, fmt.Errorf("decode tool call arguments for %s: %w", tc.Function.Name, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return system, result, nil
}

func convertToAnthropicTools(tools []ToolDef) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("decode schema for %s: %w", t.Name, err)
		}

		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, param)
	}
	return result, nil
}
