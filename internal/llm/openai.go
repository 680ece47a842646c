package llm

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLMClient for the OpenAI Chat Completions API via
// the community SDK.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	retry     retryConfig
}

// NewOpenAIClient creates an OpenAI-backed client.
func NewOpenAIClient(apiKey, model, baseURL string, maxTokens int) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		retry:     defaultRetryConfig(),
	}
}

func (c *OpenAIClient) CurrentModel() string { return c.model }

func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: list models: %w", err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (c *OpenAIClient) buildRequest(messages []Message, tools []ToolDef, stream bool) (openai.ChatCompletionRequest, error) {
	msgs, err := convertToOpenAIMessages(messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   stream,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}
	if len(tools) > 0 {
		req.Tools = convertToOpenAITools(tools)
	}
	return req, nil
}

func (c *OpenAIClient) SendMessage(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	req, err := c.buildRequest(messages, tools, false)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}

	var resp openai.ChatCompletionResponse
	err = withRetry(ctx, c.retry, func() error {
		r, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices in response")
	}

	choice := resp.Choices[0]
	return &Response{
		Message:      openAIMessageToInternal(choice.Message),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) StreamMessage(ctx context.Context, messages []Message, tools []ToolDef) (<-chan StreamEvent, error) {
	req, err := c.buildRequest(messages, tools, true)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)

		err := withRetry(ctx, c.retry, func() error {
			stream, err := c.client.CreateChatCompletionStream(ctx, req)
			if err != nil {
				return err
			}
			defer stream.Close()
			return processOpenAIStream(stream, events)
		})
		if err != nil {
			events <- StreamEvent{Err: fmt.Errorf("openai: %w", err), Done: true}
		}
	}()
	return events, nil
}

func processOpenAIStream(stream *openai.ChatCompletionStream, events chan<- StreamEvent) error {
	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				events <- StreamEvent{Done: true}
				return nil
			}
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.Delta.Content != "" {
			events <- StreamEvent{TextDelta: choice.Delta.Content}
		}
		if len(choice.Delta.ToolCalls) > 0 {
			deltas := make([]ToolCallDelta, 0, len(choice.Delta.ToolCalls))
			for _, tc := range choice.Delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				deltas = append(deltas, ToolCallDelta{
					Index:     idx,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			events <- StreamEvent{ToolCallDeltas: deltas}
		}
		if choice.FinishReason != "" {
			events <- StreamEvent{FinishReason: string(choice.FinishReason)}
		}
	}
}

func convertToOpenAIMessages(messages []Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.ContentString(),
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		result = append(result, msg)
	}
	return result, nil
}

func convertToOpenAITools(tools []ToolDef) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func openAIMessageToInternal(m openai.ChatCompletionMessage) Message {
	content := m.Content
	var calls []ToolCall
	for _, tc := range m.ToolCalls {
		calls = append(calls, ToolCall{
			ID: tc.ID,
			Function: FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return AssistantMessage(&content, calls)
}
