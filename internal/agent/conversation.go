// Package agent implements the agent control loop: conversation state,
// the orchestrator's iteration driver, checkpointing, and the explore
// sub-agent, wired on top of internal/llm, internal/parser, and
// internal/mediator.
package agent

import (
	"fmt"
	"unicode"

	"bailu/internal/llm"
)

// tailRetention is how many trailing messages auto-compression keeps
// verbatim (a normal user/assistant/tool-result cadence's last three
// rounds).
const tailRetention = 6

// tokenBudget and compressionThreshold are the default auto-compression
// knobs: trigger at 80% of an 8000-token budget.
const (
	tokenBudget          = 8000
	compressionThreshold = 0.8
)

// minMessagesForAutoCompaction gates auto-compression so a short
// conversation with an inflated single message never triggers it.
const minMessagesForAutoCompaction = 10

// Conversation holds one session's message sequence: a system message
// at index 0 followed by the user/assistant/tool-result history.
type Conversation struct {
	messages []llm.Message
}

// NewConversation creates a conversation seeded with systemPrompt.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []llm.Message{llm.TextMessage("system", systemPrompt)},
	}
}

// Messages returns the current message sequence. Callers must not
// mutate the returned slice's backing array.
func (c *Conversation) Messages() []llm.Message {
	return c.messages
}

// Append adds msg to the end of the conversation.
func (c *Conversation) Append(msg llm.Message) {
	c.messages = append(c.messages, msg)
}

// Len returns the number of messages, including the system message.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// EstimateTokens approximates msg's token cost as
// 1.5×count(CJK characters) + 0.25×count(ascii-letter words), summing
// role, content, and any tool-call name/arguments text. Deliberately
// cheap and monotonic — exact accuracy is not required.
func EstimateTokens(msg llm.Message) int {
	total := estimateTextTokens(msg.Role)
	if msg.Content != nil {
		total += estimateTextTokens(*msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		total += estimateTextTokens(tc.Function.Name)
		total += estimateTextTokens(tc.Function.Arguments)
	}
	if total < 1 {
		total = 1
	}
	return total
}

func estimateTextTokens(text string) int {
	cjk := 0
	inWord := false
	words := 0
	estimate := 0.0

	for _, r := range text {
		if isCJK(r) {
			cjk++
			inWord = false
			continue
		}
		if unicode.IsLetter(r) {
			if !inWord {
				words++
				inWord = true
			}
			continue
		}
		inWord = false
	}

	estimate = 1.5*float64(cjk) + 0.25*float64(words)
	return int(estimate)
}

// isCJK reports whether r falls in one of the common CJK Unicode blocks.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana + Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul Syllables
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return true
	default:
		return false
	}
}

// EstimateTotal sums EstimateTokens over every message.
func (c *Conversation) EstimateTotal() int {
	total := 0
	for _, msg := range c.messages {
		total += EstimateTokens(msg)
	}
	return total
}

// NeedsAutoCompaction reports whether the conversation has crossed
// the auto-compression trigger: estimate exceeds 80% of an
// 8000-token budget AND the message count exceeds 10.
func (c *Conversation) NeedsAutoCompaction() bool {
	if len(c.messages) <= minMessagesForAutoCompaction {
		return false
	}
	threshold := int(tokenBudget * compressionThreshold)
	return c.EstimateTotal() > threshold
}

// Compact replaces everything between the system message and the last
// tailRetention messages with a single system-role marker stating how
// many messages were elided. A no-op (returning false) if there are at
// most tailRetention+1 messages, i.e. nothing between the system message
// and the tail to elide.
func (c *Conversation) Compact() bool {
	return c.compactKeepingTail(tailRetention)
}

// CompactManual is the user-facing "/compact" command: identical
// semantics to Compact but phrased as "last 3 rounds" — equivalent to
// tailRetention in a normal user/assistant cadence.
// Safe to call with fewer than three rounds: a no-op with a notice.
func (c *Conversation) CompactManual() (ok bool, notice string) {
	if len(c.messages) <= tailRetention+1 {
		return false, "Nothing to compact: fewer than three rounds of conversation."
	}
	elided := c.compactKeepingTail(tailRetention)
	return elided, ""
}

func (c *Conversation) compactKeepingTail(tail int) bool {
	if len(c.messages) <= tail+1 {
		return false
	}

	system := c.messages[0]
	tailMessages := append([]llm.Message(nil), c.messages[len(c.messages)-tail:]...)
	elidedCount := len(c.messages) - 1 - tail

	marker := llm.TextMessage("system", fmt.Sprintf("[%d earlier messages elided to save context]", elidedCount))

	compacted := make([]llm.Message, 0, 2+tail)
	compacted = append(compacted, system, marker)
	compacted = append(compacted, tailMessages...)
	c.messages = compacted
	return true
}

// Clear resets the conversation to just its original system message.
func (c *Conversation) Clear() {
	c.messages = c.messages[:1]
}

// Restore replaces the entire message sequence, e.g. when resuming a
// saved session or rewinding to an earlier checkpoint. messages must
// include its own system message at index 0.
func (c *Conversation) Restore(messages []llm.Message) {
	c.messages = append([]llm.Message(nil), messages...)
}
