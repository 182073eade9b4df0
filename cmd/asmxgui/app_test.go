package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_LoadSource_CleanProgram(t *testing.T) {
	a := NewApp()
	src := "CPU 6502\nORG 0\nSTART: LDA #$42\n STA $2000\n RTS\n"

	err := a.LoadSource(src, "test.asm")
	require.NoError(t, err)

	assert.Equal(t, 0, a.ErrorCount)
	assert.NotEmpty(t, a.Listing)

	var found bool
	for _, row := range a.Symbols {
		if row.Name == "START" {
			found = true
			assert.Equal(t, "0x0000", row.Value)
		}
	}
	assert.True(t, found, "expected START in symbol table")
}

func TestApp_LoadSource_UndefinedSymbolReportsDiagnostic(t *testing.T) {
	a := NewApp()
	src := "CPU 6502\nORG 0\n JMP MISSING\n"

	err := a.LoadSource(src, "test.asm")
	require.NoError(t, err)

	assert.Greater(t, a.ErrorCount, 0)
	assert.NotEmpty(t, a.Diagnostics)
}

func TestApp_LoadSource_ReportsReferenceCounts(t *testing.T) {
	a := NewApp()
	src := "CPU 6502\nORG 0\nSTART: NOP\n JMP START\n JMP START\n"

	err := a.LoadSource(src, "test.asm")
	require.NoError(t, err)

	for _, row := range a.Symbols {
		if row.Name == "START" {
			assert.Equal(t, 2, row.Refs)
			return
		}
	}
	t.Fatal("START not found in symbol table")
}

func TestStatusText(t *testing.T) {
	a := NewApp()
	assert.True(t, strings.Contains(statusText(a), "No file loaded"))
}
