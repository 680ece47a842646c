package llm

import "strings"

// AccumulateStream collects streaming events into a complete Response,
// calling onText for each text delta so the caller can display tokens as
// they arrive.
func AccumulateStream(events <-chan StreamEvent, onText func(string)) (*Response, error) {
	var content strings.Builder
	toolCalls := make(map[int]*ToolCall)
	var maxIndex = -1
	var usage Usage
	var finishReason string

	for event := range events {
		if event.Err != nil {
			return nil, event.Err
		}
		if event.Done {
			break
		}

		if event.TextDelta != "" {
			content.WriteString(event.TextDelta)
			if onText != nil {
				onText(event.TextDelta)
			}
		}

		for _, delta := range event.ToolCallDeltas {
			tc, ok := toolCalls[delta.Index]
			if !ok {
				tc = &ToolCall{}
				toolCalls[delta.Index] = tc
			}
			if delta.ID != "" {
				tc.ID = delta.ID
			}
			if delta.Name != "" {
				tc.Function.Name = delta.Name
			}
			tc.Function.Arguments += delta.Arguments
			if delta.Index > maxIndex {
				maxIndex = delta.Index
			}
		}

		if event.Usage != nil {
			usage = *event.Usage
		}
		if event.FinishReason != "" {
			finishReason = event.FinishReason
		}
	}

	var contentPtr *string
	if content.Len() > 0 {
		s := content.String()
		contentPtr = &s
	}

	var calls []ToolCall
	for i := 0; i <= maxIndex; i++ {
		if tc, ok := toolCalls[i]; ok {
			calls = append(calls, *tc)
		}
	}

	return &Response{
		Message:      Message{Role: "assistant", Content: contentPtr, ToolCalls: calls},
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}
