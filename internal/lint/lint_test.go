package lint_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/lint"
	"github.com/crossasm/asmx/internal/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_UndefinedLabel(t *testing.T) {
	table := symtab.New()
	table.Ref("TARGET")

	lines := []lint.SourceLine{
		{Pos: diag.Position{Filename: "main.asm", Line: 1}, Text: " JMP TARGET"},
	}

	issues := lint.Run(table, lines, lint.DefaultOptions())
	require.Len(t, issues, 1)
	assert.Equal(t, "UNDEF_LABEL", issues[0].Code)
	assert.Equal(t, lint.Error, issues[0].Level)
}

func TestRun_UndefinedLabel_SuggestsSimilarName(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("COUNTER", 0, false, false, pos))
	table.Ref("COUNTR")

	lines := []lint.SourceLine{
		{Pos: pos, Text: "COUNTER: DS 1"},
		{Pos: diag.Position{Filename: "main.asm", Line: 2}, Text: " LDA COUNTR"},
	}

	// COUNTER itself is never referenced, so line 1 also gets UNUSED_LABEL.
	issues := lint.Run(table, lines, lint.DefaultOptions())
	require.Len(t, issues, 2)
	assert.Equal(t, "UNUSED_LABEL", issues[0].Code)
	assert.Equal(t, "UNDEF_LABEL", issues[1].Code)
	assert.Contains(t, issues[1].Message, "COUNTER")
}

func TestRun_UnusedLabel(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("DEAD", 0, false, false, pos))

	lines := []lint.SourceLine{{Pos: pos, Text: "DEAD: NOP"}}

	issues := lint.Run(table, lines, lint.DefaultOptions())
	require.Len(t, issues, 1)
	assert.Equal(t, "UNUSED_LABEL", issues[0].Code)
	assert.Equal(t, lint.Warning, issues[0].Level)
}

func TestRun_SpecialLabelsExemptFromUnusedCheck(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("START", 0, false, false, pos))

	lines := []lint.SourceLine{{Pos: pos, Text: "START: NOP"}}

	issues := lint.Run(table, lines, lint.DefaultOptions())
	assert.Empty(t, issues)
}

func TestRun_MultiplyDefined(t *testing.T) {
	table := symtab.New()
	pos1 := diag.Position{Filename: "main.asm", Line: 1}
	pos2 := diag.Position{Filename: "main.asm", Line: 2}
	require.NoError(t, table.Def("X", 1, false, false, pos1))
	err := table.Def("X", 2, false, false, pos2)
	require.Error(t, err)

	lines := []lint.SourceLine{
		{Pos: pos1, Text: "X: NOP"},
		{Pos: pos2, Text: "X: NOP"},
	}

	issues := lint.Run(table, lines, lint.DefaultOptions())
	var found bool
	for _, iss := range issues {
		if iss.Code == "DUP_LABEL" {
			found = true
		}
	}
	assert.True(t, found)
}
