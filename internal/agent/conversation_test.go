package agent

import (
	"strings"
	"testing"

	"bailu/internal/llm"
)

func TestEstimateTokensASCIIWords(t *testing.T) {
	msg := llm.TextMessage("user", "hello world")
	// role "user" contributes 0.25 words -> 0 (int truncation), content "hello world" -> 2 words * 0.25 = 0.5 -> 0
	// so the floor kicks in via the minimum-1 clamp.
	got := EstimateTokens(msg)
	if got < 1 {
		t.Fatalf("expected the minimum-1 clamp, got %d", got)
	}
}

func TestEstimateTokensCJKWeightedHigher(t *testing.T) {
	ascii := llm.TextMessage("user", strings.Repeat("a ", 20))
	cjk := llm.TextMessage("user", strings.Repeat("你", 20))

	if EstimateTokens(cjk) <= EstimateTokens(ascii) {
		t.Fatalf("20 CJK characters (1.5 each) should outweigh 20 ascii words (0.25 each)")
	}
}

func TestEstimateTokensToolCallCounted(t *testing.T) {
	content := ""
	msg := llm.AssistantMessage(&content, []llm.ToolCall{{
		Function: llm.FunctionCall{Name: "read file contents", Arguments: strings.Repeat("path segment ", 10)},
	}})
	if EstimateTokens(msg) < 1 {
		t.Fatal("tool call text should contribute tokens")
	}
}

func TestNeedsAutoCompactionRequiresBothConditions(t *testing.T) {
	conv := NewConversation("system prompt")
	for i := 0; i < 5; i++ {
		conv.Append(llm.TextMessage("user", "hi"))
		conv.Append(llm.TextMessage("assistant", "hello"))
	}
	if conv.Len() <= minMessagesForAutoCompaction {
		t.Fatalf("test setup should exceed the message-count gate, got %d messages", conv.Len())
	}
	if conv.NeedsAutoCompaction() {
		t.Fatal("short messages shouldn't cross the token threshold even with enough messages")
	}

	big := NewConversation("system prompt")
	big.Append(llm.TextMessage("user", strings.Repeat("word ", 40000)))
	if big.NeedsAutoCompaction() {
		t.Fatal("a single oversized message shouldn't trigger without exceeding the message-count gate")
	}
}

func TestCompactPreservesSystemAndTail(t *testing.T) {
	conv := NewConversation("system prompt")
	for i := 0; i < 10; i++ {
		conv.Append(llm.TextMessage("user", "round"))
	}
	before := conv.Len()

	ok := conv.Compact()
	if !ok {
		t.Fatal("expected compaction to run")
	}

	msgs := conv.Messages()
	if msgs[0].ContentString() != "system prompt" {
		t.Fatalf("system message must survive at index 0, got %q", msgs[0].ContentString())
	}
	if !strings.Contains(msgs[1].ContentString(), "elided") {
		t.Fatalf("expected an elision marker at index 1, got %q", msgs[1].ContentString())
	}
	if len(msgs) != 2+tailRetention {
		t.Fatalf("expected system + marker + %d tail messages, got %d (before=%d)", tailRetention, len(msgs), before)
	}
}

func TestCompactNoOpWhenShort(t *testing.T) {
	conv := NewConversation("system prompt")
	conv.Append(llm.TextMessage("user", "hi"))

	if conv.Compact() {
		t.Fatal("expected no-op on a short conversation")
	}
}

func TestCompactManualNoticeOnShortConversation(t *testing.T) {
	conv := NewConversation("system prompt")
	conv.Append(llm.TextMessage("user", "hi"))

	ok, notice := conv.CompactManual()
	if ok {
		t.Fatal("expected a no-op")
	}
	if notice == "" {
		t.Fatal("expected a user-facing notice")
	}
}

func TestClearResetsToSystemMessage(t *testing.T) {
	conv := NewConversation("system prompt")
	conv.Append(llm.TextMessage("user", "hi"))
	conv.Append(llm.TextMessage("assistant", "hello"))

	conv.Clear()
	if conv.Len() != 1 {
		t.Fatalf("expected only the system message, got %d", conv.Len())
	}
}
