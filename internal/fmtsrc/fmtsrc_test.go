package fmtsrc_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/fmtsrc"
	"github.com/stretchr/testify/assert"
)

func TestFormat_Default_AlignsColumns(t *testing.T) {
	src := "START: LDA #$42 ; load it\n NOP\n"
	out := fmtsrc.Format(src, fmtsrc.DefaultOptions())

	lines := splitLines(out)
	assert.Equal(t, "START:", lines[0][:6])
	assert.Contains(t, lines[0], "LDA")
	assert.Contains(t, lines[0], "#$42")
	assert.Contains(t, lines[0], "; load it")
}

func TestFormat_Compact_CollapsesWhitespace(t *testing.T) {
	src := "START:   LDA    #$42   ; comment\n"
	out := fmtsrc.Format(src, fmtsrc.CompactOptions())
	assert.Equal(t, "START: LDA #$42 ; comment\n", out)
}

func TestFormat_PreservesBlankLines(t *testing.T) {
	src := "LABEL: NOP\n\n RTS\n"
	out := fmtsrc.Format(src, fmtsrc.DefaultOptions())
	lines := splitLines(out)
	assert.Len(t, lines, 3)
	assert.Equal(t, "", lines[1])
}

func TestFormat_CommentOnlyLinePassesThrough(t *testing.T) {
	src := "; a standalone comment\n"
	out := fmtsrc.Format(src, fmtsrc.DefaultOptions())
	assert.Equal(t, "; a standalone comment\n", out)
}

func TestFormat_QuotedSemicolonIsNotAComment(t *testing.T) {
	src := ` DB "a;b"` + "\n"
	out := fmtsrc.Format(src, fmtsrc.CompactOptions())
	assert.Equal(t, "DB \"a;b\"\n", out)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
