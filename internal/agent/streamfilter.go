package agent

import "strings"

const (
	actionOpenTag  = "<action>"
	actionCloseTag = "</action>"
)

// actionFilter incrementally suppresses <action>...</action> regions in
// a token stream so they're never shown mid-stream, using a small
// byte-level state machine rather than regex-matching an incomplete
// buffer. The full text (action
// blocks included) is still assembled separately by llm.AccumulateStream
// for the parser to run on once the stream ends — this filter only
// controls what reaches the live display.
type actionFilter struct {
	buf    strings.Builder
	inside bool
}

// Feed appends chunk to the filter and returns the portion of it (plus
// any previously withheld partial-tag bytes that are now resolved) that
// should be displayed immediately.
func (f *actionFilter) Feed(chunk string) string {
	f.buf.WriteString(chunk)
	text := f.buf.String()
	f.buf.Reset()

	var out strings.Builder
	for {
		if !f.inside {
			idx := strings.Index(text, actionOpenTag)
			if idx == -1 {
				keep := longestPartialTagSuffix(text, actionOpenTag)
				out.WriteString(text[:len(text)-keep])
				f.buf.WriteString(text[len(text)-keep:])
				return out.String()
			}
			out.WriteString(text[:idx])
			text = text[idx+len(actionOpenTag):]
			f.inside = true
			continue
		}

		idx := strings.Index(text, actionCloseTag)
		if idx == -1 {
			// Inside the action block with no close tag yet; nothing is
			// displayable, but a trailing partial close tag is kept so a
			// tag split across chunks (e.g. "</act" + "ion>") still ends
			// the block.
			keep := longestPartialTagSuffix(text, actionCloseTag)
			f.buf.WriteString(text[len(text)-keep:])
			return out.String()
		}
		text = text[idx+len(actionCloseTag):]
		f.inside = false
	}
}

// longestPartialTagSuffix returns the length of the longest suffix of
// text that is also a proper prefix of tag, so a tag split across two
// stream chunks (e.g. "<acti" + "on>") is never partially displayed.
func longestPartialTagSuffix(text, tag string) int {
	max := len(tag) - 1
	if max > len(text) {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(text, tag[:n]) {
			return n
		}
	}
	return 0
}
