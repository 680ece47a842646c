package agent

import (
	"fmt"
	"strings"

	"bailu/internal/tools"
)

const (
	toolAppendixOpen  = "<!-- bailu:tool-appendix -->"
	toolAppendixClose = "<!-- /bailu:tool-appendix -->"
	memoryOpen        = "<!-- bailu:memory -->"
	memoryClose       = "<!-- /bailu:memory -->"
)

// BaseSystemPrompt is the identity and operating instructions every
// conversation's system message starts from, before the tool-doc and
// memory appendices are attached.
func BaseSystemPrompt(workspaceRoot string) string {
	var sb strings.Builder
	sb.WriteString(`You are Bailu, an AI coding assistant running in the terminal. You help users with software engineering tasks by reading and modifying files, running commands, and reasoning about code.

Every mutating action you propose is mediated by a safety policy: depending on the active mode, it may be simulated, require explicit approval, or apply immediately. Always wait for a tool's result before assuming it succeeded.

Emit tool invocations as an <action> block containing one or more <invoke tool="NAME"><param name="KEY">VALUE</param></invoke> entries. Text outside <action> is shown to the user directly.
`)
	fmt.Fprintf(&sb, "\nWorking directory: %s\n", workspaceRoot)
	return sb.String()
}

// buildToolAppendix renders each tool's name, description, and
// parameters as markdown, wrapped in the idempotency sentinel so Run
// can find-and-replace it across turns instead of re-parsing prose.
func buildToolAppendix(defs []tools.ToolDefinition) string {
	var sb strings.Builder
	sb.WriteString(toolAppendixOpen)
	sb.WriteString("\n# Available tools\n\n")
	for _, def := range defs {
		fmt.Fprintf(&sb, "## %s\n%s\n", def.Name, def.Description)
		if len(def.Parameters) > 0 {
			sb.WriteString("Parameters:\n")
			for _, p := range def.Parameters {
				req := "optional"
				if p.Required {
					req = "required"
				}
				fmt.Fprintf(&sb, "- `%s` (%s, %s): %s\n", p.Name, p.Type, req, p.Description)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString(toolAppendixClose)
	return sb.String()
}

// buildMemorySection renders the orchestrator's running advisory
// summary — file paths touched so far and the most recent directory
// listing — as prose, not structured state the model could depend on.
func buildMemorySection(activeFiles []string, lastDirListing string) string {
	var sb strings.Builder
	sb.WriteString(memoryOpen)
	sb.WriteString("\n# Session memory (advisory)\n\n")
	if len(activeFiles) > 0 {
		fmt.Fprintf(&sb, "Files touched so far: %s\n", strings.Join(activeFiles, ", "))
	}
	if lastDirListing != "" {
		fmt.Fprintf(&sb, "Last directory listing:\n%s\n", lastDirListing)
	}
	sb.WriteString(memoryClose)
	return sb.String()
}

// upsertSection finds an existing sentinel-delimited section in content
// and replaces it with section, or appends section if none exists yet —
// the idempotency the tool-doc and memory appendices both rely on.
func upsertSection(content, open, close, section string) string {
	startIdx := strings.Index(content, open)
	if startIdx == -1 {
		return strings.TrimRight(content, "\n") + "\n\n" + section
	}
	endIdx := strings.Index(content[startIdx:], close)
	if endIdx == -1 {
		return strings.TrimRight(content, "\n") + "\n\n" + section
	}
	endIdx = startIdx + endIdx + len(close)
	return content[:startIdx] + section + content[endIdx:]
}
