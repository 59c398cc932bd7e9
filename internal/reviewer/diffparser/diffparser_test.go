package diffparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleHunk(t *testing.T) {
	diff := "diff --git a/main.go b/main.go\n" +
		"index 83db48f..bf269f4 100644\n" +
		"--- a/main.go\n" +
		"+++ b/main.go\n" +
		"@@ -1,3 +1,4 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		"+B2\n" +
		" c\n"

	parsed := Parse(diff)

	require.Len(t, parsed.Chunks, 1)
	chunk := parsed.Chunks[0]
	assert.Equal(t, 1, chunk.OldStart)
	assert.Equal(t, 3, chunk.OldCount)
	assert.Equal(t, 1, chunk.NewStart)
	assert.Equal(t, 4, chunk.NewCount)

	assert.Equal(t, []int{2, 3}, parsed.AddedLines())
	assert.Equal(t, []int{2}, parsed.DeletedLines())

	require.Len(t, chunk.Lines, 5)
	assert.Equal(t, Line{Kind: LineContext, NewLine: 1, OldLine: 1, Content: "a"}, chunk.Lines[0])
	assert.Equal(t, Line{Kind: LineDeleted, OldLine: 2, Content: "b"}, chunk.Lines[1])
	assert.Equal(t, Line{Kind: LineAdded, NewLine: 2, Content: "B"}, chunk.Lines[2])
	assert.Equal(t, Line{Kind: LineAdded, NewLine: 3, Content: "B2"}, chunk.Lines[3])
	assert.Equal(t, Line{Kind: LineContext, NewLine: 4, OldLine: 3, Content: "c"}, chunk.Lines[4])
}

func TestParse_MultipleHunksResetCounters(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n" +
		" x\n" +
		"+y\n" +
		"@@ -10,2 +20,3 @@\n" +
		" p\n" +
		"+q\n" +
		"+r\n" +
		"-s\n"

	parsed := Parse(diff)

	require.Len(t, parsed.Chunks, 2)
	assert.Equal(t, []int{2, 21, 22}, parsed.AddedLines())
	assert.Equal(t, []int{11}, parsed.DeletedLines())
	assert.Equal(t, "2, 21-22", parsed.AddedRanges())
}

func TestParse_MissingCountsDefaultToOne(t *testing.T) {
	parsed := Parse("@@ -5 +7 @@ func x() {\n-old\n+new\n")

	require.Len(t, parsed.Chunks, 1)
	assert.Equal(t, 1, parsed.Chunks[0].OldCount)
	assert.Equal(t, 1, parsed.Chunks[0].NewCount)
	assert.True(t, parsed.IsAdded(7))
	assert.Equal(t, []int{5}, parsed.DeletedLines())
}

func TestParse_NewFile(t *testing.T) {
	parsed := Parse("--- /dev/null\n+++ b/new.go\n@@ -0,0 +1,3 @@\n+package x\n+\n+func A() {}\n")

	require.Len(t, parsed.Chunks, 1)
	assert.Equal(t, 1, parsed.Chunks[0].OldStart)
	assert.Equal(t, 1, parsed.Chunks[0].NewStart)
	assert.Equal(t, []int{1, 2, 3}, parsed.AddedLines())

	content, ok := parsed.LineContent(3)
	require.True(t, ok)
	assert.Equal(t, "func A() {}", content)
}

func TestParse_IgnoresNoNewlineMarker(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n" +
		" a\n" +
		"-b\n" +
		"\\ No newline at end of file\n" +
		"+c\n" +
		"\\ No newline at end of file\n"

	parsed := Parse(diff)

	assert.Equal(t, []int{2}, parsed.AddedLines())
	assert.Equal(t, []int{2}, parsed.DeletedLines())
	assert.Len(t, parsed.Chunks[0].Lines, 3)
}

func TestParse_MalformedHeaderSkipsItsBody(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n" +
		"+first\n" +
		"@@ broken header @@\n" +
		"+ignored\n" +
		" ignored\n" +
		"@@ -40,1 +50,2 @@\n" +
		" ctx\n" +
		"+second\n"

	parsed := Parse(diff)

	require.Len(t, parsed.Chunks, 2)
	assert.Equal(t, []int{1, 51}, parsed.AddedLines())
}

func TestParse_CRLF(t *testing.T) {
	parsed := Parse("@@ -1,1 +1,2 @@\r\n a\r\n+b\r\n")

	assert.Equal(t, []int{2}, parsed.AddedLines())
	content, _ := parsed.LineContent(2)
	assert.Equal(t, "b", content)
}

func TestParse_Garbage(t *testing.T) {
	for _, diff := range []string{"", "not a diff", "+++ b/x\n--- a/x\n", "@@\n+x\n"} {
		parsed := Parse(diff)
		require.NotNil(t, parsed)
		assert.Empty(t, parsed.Chunks, diff)
		assert.Empty(t, parsed.AddedLines(), diff)
	}
}

func TestNumbered(t *testing.T) {
	parsed := Parse("@@ -1,2 +1,2 @@\n a\n-b\n+B\n@@ -9,1 +9,2 @@\n z\n+y\n")

	expected := "  1: a\n" +
		"- 2: b\n" +
		"+ 2: B\n" +
		"\n" +
		"  9: z\n" +
		"+ 10: y"
	assert.Equal(t, expected, parsed.Numbered())
}

func TestWhitespaceOnly(t *testing.T) {
	tests := []struct {
		name string
		diff string
		want bool
	}{
		{"reindent", "@@ -1,1 +1,1 @@\n-\tfoo()\n+    foo()\n", true},
		{"blank line added", "@@ -1,1 +1,2 @@\n a\n+\n", true},
		{"code change", "@@ -1,1 +1,1 @@\n-foo()\n+bar()\n", false},
		{"mixed hunks", "@@ -1,1 +1,1 @@\n-a \n+a\n@@ -5,1 +5,1 @@\n-x\n+y\n", false},
		{"no changes", "@@ -1,1 +1,1 @@\n a\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.diff).WhitespaceOnly())
		})
	}
}
