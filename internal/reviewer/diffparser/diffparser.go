// Package diffparser turns a unified diff into chunks and lines with exact
// old/new file line numbers. Inline comment placement trusts only these numbers.
package diffparser

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// LineKind is the role of a line inside a hunk
type LineKind string

const (
	LineAdded   LineKind = "added"
	LineDeleted LineKind = "deleted"
	LineContext LineKind = "context"
)

// Line is one body line of a hunk. NewLine is 0 for deleted lines and OldLine is 0 for added lines.
type Line struct {
	Kind    LineKind
	NewLine int
	OldLine int
	Content string
}

// Chunk is one hunk of a unified diff
type Chunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// ParsedDiff is the immutable result of Parse.
// Added is the authoritative set of new-file lines that can carry an inline comment.
type ParsedDiff struct {
	Chunks  []Chunk
	Added   map[int]struct{}
	Deleted map[int]struct{}

	newContent map[int]string
}

var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse parses a unified diff. It never fails: malformed hunk headers are
// skipped together with their body, the rest of the diff is parsed as usual.
func Parse(diff string) *ParsedDiff {
	out := &ParsedDiff{
		Added:      make(map[int]struct{}),
		Deleted:    make(map[int]struct{}),
		newContent: make(map[int]string),
	}

	var (
		current          *Chunk
		oldLine, newLine int
	)

	flush := func() {
		if current != nil {
			out.Chunks = append(out.Chunks, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(diff, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if strings.HasPrefix(line, "@@") {
			flush()
			chunk, ok := parseHeader(line)
			if !ok {
				continue
			}
			current = &chunk
			oldLine, newLine = chunk.OldStart, chunk.NewStart
			continue
		}

		if current == nil || line == "" {
			continue
		}

		switch {
		case line[0] == '+' && !strings.HasPrefix(line, "+++"):
			current.Lines = append(current.Lines, Line{Kind: LineAdded, NewLine: newLine, Content: line[1:]})
			out.Added[newLine] = struct{}{}
			out.newContent[newLine] = line[1:]
			newLine++

		case line[0] == '-' && !strings.HasPrefix(line, "---"):
			current.Lines = append(current.Lines, Line{Kind: LineDeleted, OldLine: oldLine, Content: line[1:]})
			out.Deleted[oldLine] = struct{}{}
			oldLine++

		case line[0] == ' ':
			current.Lines = append(current.Lines, Line{Kind: LineContext, NewLine: newLine, OldLine: oldLine, Content: line[1:]})
			out.newContent[newLine] = line[1:]
			oldLine++
			newLine++
		}
	}
	flush()

	return out
}

// parseHeader parses "@@ -a,b +c,d @@". Missing counts default to 1.
// A zero start (pure addition or deletion hunk) is clamped to 1.
func parseHeader(line string) (Chunk, bool) {
	m := hunkHeaderRegex.FindStringSubmatch(line)
	if m == nil {
		return Chunk{}, false
	}
	atoi := func(s string, def int) int {
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return n
	}
	return Chunk{
		OldStart: max(atoi(m[1], 1), 1),
		OldCount: atoi(m[2], 1),
		NewStart: max(atoi(m[3], 1), 1),
		NewCount: atoi(m[4], 1),
	}, true
}

// IsAdded reports if the new-file line was added by the diff.
func (d *ParsedDiff) IsAdded(line int) bool {
	if d == nil {
		return false
	}
	_, ok := d.Added[line]
	return ok
}

// AddedLines returns added new-file line numbers in ascending order.
func (d *ParsedDiff) AddedLines() []int {
	return sortedKeys(d.Added)
}

// DeletedLines returns deleted old-file line numbers in ascending order.
func (d *ParsedDiff) DeletedLines() []int {
	return sortedKeys(d.Deleted)
}

// LineContent returns the text of a new-file line visible in the diff.
func (d *ParsedDiff) LineContent(line int) (string, bool) {
	s, ok := d.newContent[line]
	return s, ok
}

// AddedRanges renders the added lines compactly, e.g. "3-4, 10".
func (d *ParsedDiff) AddedRanges() string {
	lines := d.AddedLines()
	if len(lines) == 0 {
		return "none"
	}

	var parts []string
	start, prev := lines[0], lines[0]
	emit := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, n := range lines[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		emit()
		start, prev = n, n
	}
	emit()

	return strings.Join(parts, ", ")
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
