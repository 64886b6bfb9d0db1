package graph

// scanState is the position of the reference scanner relative to a
// [[target|alias]] span.
type scanState int

const (
	stateOutside scanState = iota
	stateTarget
	stateAlias
)

// ExtractReferences returns the link targets of every [[...]] span in text,
// in document order and with duplicates. For [[target|alias]] only target is
// returned.
//
// The scan is a single pass over the bytes of text. A span that is not closed
// by "]]" before the next "]" or before the end of the text is dropped, as is
// a span with an empty target. The content of a span may contain "[", so
// "[[a [[b]]" yields "a [[b"; rejecting such references is the resolver's job.
func ExtractReferences(text string) []string {
	refs := make([]string, 0)

	state := stateOutside
	start, end := 0, 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateOutside:
			if c == '[' && i+1 < len(text) && text[i+1] == '[' {
				i++
				start = i + 1
				state = stateTarget
			}
		case stateTarget, stateAlias:
			if c == '|' && state == stateTarget {
				end = i
				state = stateAlias
				continue
			}
			if c != ']' {
				continue
			}
			if state == stateTarget {
				end = i
			}
			if i+1 < len(text) && text[i+1] == ']' {
				if end > start {
					refs = append(refs, text[start:end])
				}
				i++
			}
			// a lone "]" ends the span without a reference
			state = stateOutside
		}
	}

	return refs
}
