package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoActionBlock(t *testing.T) {
	text := "There are 12 files in src/."
	plaintext, calls := Parse(text)
	assert.Equal(t, text, plaintext)
	assert.Empty(t, calls)
}

func TestParseSingleInvoke(t *testing.T) {
	text := `<action><invoke tool="read_file"><param name="path">README.md</param></invoke></action>`
	plaintext, calls := Parse(text)
	assert.Empty(t, plaintext)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].Tool)
	assert.Equal(t, "README.md", calls[0].Params["path"])
}

func TestParseSurroundingText(t *testing.T) {
	text := "Let me check that file.\n" +
		`<action><invoke tool="read_file"><param name="path">a.txt</param></invoke></action>` +
		"\nDone."
	plaintext, calls := Parse(text)
	assert.Equal(t, "Let me check that file.\n\nDone.", plaintext)
	require.Len(t, calls, 1)
}

func TestParseMultipleInvokesOneAction(t *testing.T) {
	text := `<action>` +
		`<invoke tool="read_file"><param name="path">a.txt</param></invoke>` +
		`<invoke tool="read_file"><param name="path">b.txt</param></invoke>` +
		`</action>`
	_, calls := Parse(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "a.txt", calls[0].Params["path"])
	assert.Equal(t, "b.txt", calls[1].Params["path"])
}

func TestParseValueContainingAngleBrackets(t *testing.T) {
	diff := "@@ -1,3 +1,3 @@\n one\n-<two>\n+<TWO>\n three\n"
	text := `<action><invoke tool="apply_diff"><param name="path">a.txt</param><param name="diff">` + diff + `</param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, diff, calls[0].Params["diff"])
}

func TestParseCDATAWrapper(t *testing.T) {
	text := `<action><invoke tool="write_file"><param name="content"><![CDATA[line one\nline <two>]]></param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, `line one\nline <two>`, calls[0].Params["content"])
}

func TestParseMalformedXMLYieldsNoCalls(t *testing.T) {
	text := `<action><invoke tool="read_file"><param name="path">a.txt</param></invoke>`
	plaintext, calls := Parse(text)
	assert.Empty(t, calls)
	assert.Equal(t, text, plaintext)
}

func TestCoerceBoolean(t *testing.T) {
	text := `<action><invoke tool="list_directory"><param name="recursive">true</param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].Params["recursive"])
}

func TestCoerceNumber(t *testing.T) {
	text := `<action><invoke tool="run_command"><param name="timeout">30</param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, float64(30), calls[0].Params["timeout"])
}

func TestCoerceStructuredArray(t *testing.T) {
	text := `<action><invoke tool="write_tasks"><param name="tasks">[{"content":"a","description":"b"}]</param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	arr, ok := calls[0].Params["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestCoerceMalformedStructuredFallsBackToString(t *testing.T) {
	text := `<action><invoke tool="write_tasks"><param name="tasks">[not json</param></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "[not json", calls[0].Params["tasks"])
}

func TestParseEmptyInvokeHasNoParams(t *testing.T) {
	text := `<action><invoke tool="read_tasks"></invoke></action>`
	_, calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Params)
}
