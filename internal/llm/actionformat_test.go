package llm

import (
	"strings"
	"testing"
)

func TestToActionTextSingleCall(t *testing.T) {
	calls := []ToolCall{{
		ID: "call_1",
		Function: FunctionCall{
			Name:      "read_file",
			Arguments: `{"path":"README.md"}`,
		},
	}}
	got := ToActionText(calls)
	if !strings.Contains(got, `<invoke tool="read_file">`) {
		t.Fatalf("missing invoke tag: %s", got)
	}
	if !strings.Contains(got, `<param name="path">README.md</param>`) {
		t.Fatalf("missing param: %s", got)
	}
	if !strings.HasPrefix(got, "<action>") || !strings.HasSuffix(got, "</action>") {
		t.Fatalf("not wrapped in action block: %s", got)
	}
}

func TestToActionTextNoCalls(t *testing.T) {
	if got := ToActionText(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestToActionTextStructuredArgument(t *testing.T) {
	calls := []ToolCall{{
		Function: FunctionCall{
			Name:      "write_tasks",
			Arguments: `{"tasks":[{"content":"a","description":"b"}]}`,
		},
	}}
	got := ToActionText(calls)
	if !strings.Contains(got, `<param name="tasks">[{"content":"a","description":"b"}]</param>`) {
		t.Fatalf("structured argument not round-tripped as JSON: %s", got)
	}
}

func TestAppendActionTextNoOpWithoutCalls(t *testing.T) {
	got := AppendActionText("hello", nil)
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestAppendActionTextAppendsToContent(t *testing.T) {
	calls := []ToolCall{{Function: FunctionCall{Name: "read_tasks", Arguments: "{}"}}}
	got := AppendActionText("Let me check.", calls)
	if !strings.HasPrefix(got, "Let me check.\n<action>") {
		t.Fatalf("got %q", got)
	}
}
