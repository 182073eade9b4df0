package xref_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/symtab"
	"github.com/crossasm/asmx/internal/xref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DefinitionAndReferences(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("START", 0x1000, false, false, pos))
	table.Ref("START")
	table.Ref("START")

	lines := []xref.SourceLine{
		{Pos: diag.Position{Filename: "main.asm", Line: 1}, Text: "START: LDA #$42"},
		{Pos: diag.Position{Filename: "main.asm", Line: 2}, Text: " JMP START"},
		{Pos: diag.Position{Filename: "main.asm", Line: 3}, Text: " JMP START"},
	}

	report := xref.Build(table, lines)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, "START", entry.Name)
	assert.True(t, entry.Defined)
	assert.Equal(t, int32(0x1000), entry.Value)
	assert.Len(t, entry.References, 2)
}

func TestReport_UndefinedAndUnreferenced(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("USED", 1, false, false, pos))
	table.Ref("MISSING")

	lines := []xref.SourceLine{
		{Pos: pos, Text: "USED: NOP"},
		{Pos: diag.Position{Filename: "main.asm", Line: 2}, Text: " JMP MISSING"},
	}

	report := xref.Build(table, lines)
	undef := report.Undefined()
	require.Len(t, undef, 1)
	assert.Equal(t, "MISSING", undef[0].Name)

	unref := report.Unreferenced()
	require.Len(t, unref, 1)
	assert.Equal(t, "USED", unref[0].Name)
}

func TestReport_String(t *testing.T) {
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 1}
	require.NoError(t, table.Def("START", 0, false, false, pos))

	report := xref.Build(table, []xref.SourceLine{{Pos: pos, Text: "START: NOP"}})
	out := report.String()
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "Total symbols: 1")
}
