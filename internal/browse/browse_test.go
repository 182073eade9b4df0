package browse_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/browse"
	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/symtab"
	"github.com/crossasm/asmx/internal/xref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildReport(t *testing.T) *xref.Report {
	t.Helper()
	table := symtab.New()
	pos := diag.Position{Filename: "main.asm", Line: 3}
	require.NoError(t, table.Def("START", 0x1000, false, false, pos))
	lines := []xref.SourceLine{
		{Pos: pos, Text: "START: NOP"},
		{Pos: diag.Position{Filename: "main.asm", Line: 4}, Text: " JMP START"},
	}
	return xref.Build(table, lines)
}

func TestNew_BuildsListingAndSymbolPanels(t *testing.T) {
	report := buildReport(t)
	listing := "line 1\nline 2\nSTART: NOP\n JMP START\n"

	b := browse.New(listing, report)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.SymbolView.GetItemCount())

	name, _ := b.SymbolView.GetItemText(0)
	assert.Equal(t, "START", name)
}

func TestNew_EmptyReportProducesNoSymbols(t *testing.T) {
	b := browse.New("line 1\n", nil)
	require.NotNil(t, b)
	assert.Equal(t, 0, b.SymbolView.GetItemCount())
}
