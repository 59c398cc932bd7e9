package diffparser

import (
	"fmt"
	"strings"
	"unicode"
)

// Numbered renders the diff with explicit line numbers so a model never has to
// count lines itself. Added and context lines carry new-file numbers, deleted
// lines carry old-file numbers. Hunks are separated by a blank line.
//
//	+ 12: added code
//	- 9: removed code
//	  11: unchanged code
func (d *ParsedDiff) Numbered() string {
	if d == nil {
		return ""
	}

	var b strings.Builder
	for i, chunk := range d.Chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, line := range chunk.Lines {
			switch line.Kind {
			case LineAdded:
				fmt.Fprintf(&b, "+ %d: %s\n", line.NewLine, line.Content)
			case LineDeleted:
				fmt.Fprintf(&b, "- %d: %s\n", line.OldLine, line.Content)
			case LineContext:
				fmt.Fprintf(&b, "  %d: %s\n", line.NewLine, line.Content)
			}
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// WhitespaceOnly reports if every hunk changes whitespace only: added and
// deleted text of each hunk is equal once all whitespace is removed.
// A diff without any changed line is not whitespace-only.
func (d *ParsedDiff) WhitespaceOnly() bool {
	if d == nil || len(d.Added)+len(d.Deleted) == 0 {
		return false
	}

	for _, chunk := range d.Chunks {
		var added, deleted strings.Builder
		for _, line := range chunk.Lines {
			switch line.Kind {
			case LineAdded:
				added.WriteString(stripSpace(line.Content))
			case LineDeleted:
				deleted.WriteString(stripSpace(line.Content))
			}
		}
		if added.String() != deleted.String() {
			return false
		}
	}

	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
