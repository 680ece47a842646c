package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToActionText serializes native function-calling tool calls into the same
// <action>...</action> textual form the parser reads, per the dual-format
// requirement: whichever channel the provider surfaces tool calls on, the
// parser stays the single source of truth for what the orchestrator sees.
func ToActionText(calls []ToolCall) string {
	if len(calls) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<action>")
	for _, c := range calls {
		fmt.Fprintf(&b, `<invoke tool="%s">`, c.Function.Name)
		for _, p := range argumentsToParams(c.Function.Arguments) {
			fmt.Fprintf(&b, `<param name="%s">%s</param>`, p.name, p.value)
		}
		b.WriteString("</invoke>")
	}
	b.WriteString("</action>")
	return b.String()
}

// AppendActionText appends the serialized action block for calls to an
// assistant message's already-assembled text content, idempotently (no-op
// when there are no native tool calls to serialize).
func AppendActionText(content string, calls []ToolCall) string {
	block := ToActionText(calls)
	if block == "" {
		return content
	}
	if content == "" {
		return block
	}
	return content + "\n" + block
}

type namedParam struct{ name, value string }

// argumentsToParams flattens a tool call's JSON arguments object into the
// flat name/value param list the grammar expects. Nested values are
// re-serialized as JSON text so the parser's structured-value coercion can
// recover them on the way back in.
func argumentsToParams(rawJSON string) []namedParam {
	obj, err := decodeArguments(rawJSON)
	if err != nil || obj == nil {
		return nil
	}
	params := make([]namedParam, 0, len(obj))
	for _, k := range sortedKeys(obj) {
		params = append(params, namedParam{name: k, value: stringifyValue(obj[k])})
	}
	return params
}

func decodeArguments(rawJSON string) (map[string]any, error) {
	trimmed := strings.TrimSpace(rawJSON)
	if trimmed == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringifyValue renders a decoded JSON value back into the flat text the
// grammar's coercion rules expect: strings pass through unescaped, scalars
// use their natural textual form, and arrays/objects round-trip through
// JSON so coerce() can re-parse them as structured data.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}
