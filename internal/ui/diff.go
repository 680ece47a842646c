package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PrintDiff prints a unified-style diff between old and new file
// content, line by line. This is the REPL's general-purpose diff
// display, distinct from the mediator's own gated safety-policy diff renderer,
// which runs during tool-call approval, not here.
func (t *Terminal) PrintDiff(path, oldContent, newContent string) {
	fmt.Println(t.c(Bold, path))

	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	max := len(oldLines)
	if len(newLines) > max {
		max = len(newLines)
	}

	for i := 0; i < max; i++ {
		var oldLine, newLine string
		hasOld := i < len(oldLines)
		hasNew := i < len(newLines)
		if hasOld {
			oldLine = oldLines[i]
		}
		if hasNew {
			newLine = newLines[i]
		}

		switch {
		case hasOld && hasNew && oldLine == newLine:
			fmt.Println(t.c(Gray, "  "+oldLine))
		case hasOld && !hasNew:
			fmt.Println(t.c(Red, "- "+oldLine))
		case !hasOld && hasNew:
			fmt.Println(t.c(Green, "+ "+newLine))
		default:
			fmt.Println(t.c(Red, "- "+oldLine))
			fmt.Println(t.c(Green, "+ "+newLine))
		}
	}
	fmt.Println()
}

// PrintFilePreview prints a new file's contents with line numbers.
func (t *Terminal) PrintFilePreview(path, content string) {
	fmt.Println(t.c(Bold, path) + t.c(Gray, " (new file)"))
	for i, line := range strings.Split(content, "\n") {
		fmt.Printf("  %s %s\n", t.c(Gray, fmt.Sprintf("%4d", i+1)), line)
	}
	fmt.Println()
}

// ConfirmAction prompts the user with a yes/no question and returns
// true only on an explicit "y" or "yes". This is the REPL's
// general-purpose confirmation prompt (e.g. "discard this session?",
// "overwrite checkpoint?") — the mediator uses its own approval prompt
// for tool-call safety gating.
func (t *Terminal) ConfirmAction(question string) bool {
	fmt.Print(t.c(Bold+Yellow, question+" [y/N] "))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
