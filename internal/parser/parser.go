// Package parser extracts structured tool invocations from an assistant
// message delivered as plain text with an embedded XML-like action block.
package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ToolCall is a structured invocation extracted from an action block.
type ToolCall struct {
	Tool   string
	Params map[string]any
}

// actionRe matches one <action>...</action> region, non-greedy and
// multiline so a response containing multiple blocks is split correctly.
var actionRe = regexp.MustCompile(`(?s)<action>(.*?)</action>`)

// invokeRe matches one <invoke tool="NAME">...</invoke> region inside an
// action block.
var invokeRe = regexp.MustCompile(`(?s)<invoke\s+tool="([^"]*)"\s*>(.*?)</invoke>`)

// paramRe matches one <param name="KEY">VALUE</param> region inside an
// invoke block. VALUE is terminated only by the literal closing tag, so it
// may itself contain '<' and '>'.
var paramRe = regexp.MustCompile(`(?s)<param\s+name="([^"]*)"\s*>(.*?)</param>`)

// cdataRe strips a <![CDATA[ ... ]]> wrapper, if present, around a param
// value.
var cdataRe = regexp.MustCompile(`(?s)^<!\[CDATA\[(.*)\]\]>$`)

// Parse splits an assistant message into the text the user should see and
// the tool calls the mediator should dispatch. It never returns an error:
// malformed XML (an action block that never closes) simply fails to match
// actionRe, so the whole text is returned as plaintext with zero tool
// calls — the orchestrator treats that as a terminal turn.
func Parse(text string) (plaintext string, calls []ToolCall) {
	blocks := actionRe.FindAllStringSubmatch(text, -1)
	for _, block := range blocks {
		calls = append(calls, parseInvokes(block[1])...)
	}

	plaintext = strings.TrimSpace(actionRe.ReplaceAllString(text, ""))
	return plaintext, calls
}

func parseInvokes(actionBody string) []ToolCall {
	var calls []ToolCall
	for _, m := range invokeRe.FindAllStringSubmatch(actionBody, -1) {
		tool := m[1]
		if tool == "" {
			continue
		}
		calls = append(calls, ToolCall{Tool: tool, Params: parseParams(m[2])})
	}
	return calls
}

func parseParams(invokeBody string) map[string]any {
	params := make(map[string]any)
	for _, m := range paramRe.FindAllStringSubmatch(invokeBody, -1) {
		name, raw := m[1], m[2]
		if name == "" {
			continue
		}
		params[name] = coerce(stripCDATA(raw))
	}
	return params
}

func stripCDATA(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := cdataRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return raw
}

// coerce applies the value-coercion rules to the trimmed value: structured
// data first (array or object literal), then boolean, then number. A value
// that coerces to none of these is returned as given, surrounding
// whitespace included.
func coerce(raw string) any {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
		return raw
	}

	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}

	if trimmed != "" {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return n
		}
	}

	return raw
}
