// Package main implements asmxgui, a minimal two-pane desktop viewer over
// an assembled source file: source/listing on the left, symbol table on
// the right. Adapted from the teacher's gui/app.go, which keeps the
// program-loading logic on an App struct separate from the window-wiring
// code in main.go so it can be unit tested without a running desktop
// toolkit; this module keeps that split.
package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/crossasm/asmx/backend/mos6502"
	"github.com/crossasm/asmx/backend/z80"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/listing"
	"github.com/crossasm/asmx/internal/objfile"
	"github.com/crossasm/asmx/internal/pass"
	"github.com/crossasm/asmx/internal/xref"
)

// SymbolRow is one row of the right-hand symbol table.
type SymbolRow struct {
	Name  string
	Value string
	Refs  int
}

// App holds the state of one loaded assembly: its source, the listing
// text produced by assembling it, and the symbol rows derived from the
// resulting cross-reference report.
type App struct {
	Filename    string
	Source      string
	Listing     string
	Symbols     []SymbolRow
	ErrorCount  int
	Diagnostics []string
}

// NewApp creates an empty App, as the teacher's NewApp creates an empty VM.
func NewApp() *App {
	return &App{}
}

// noFiles rejects INCLUDE/INCBIN: the GUI loads one file at a time with no
// project directory to resolve relative paths against.
type noFiles struct{}

func (noFiles) ReadFile(name string) ([]byte, error) {
	return nil, fmt.Errorf("INCLUDE/INCBIN not available in asmxgui: %q", name)
}

// LoadSource assembles source under filename and populates Listing,
// Symbols, and Diagnostics from the result. It never returns an error for
// an assembly that fails to assemble cleanly: ErrorCount and Diagnostics
// surface that instead, the same way the listing pane of a real assembler
// still shows partial output alongside its error lines.
func (a *App) LoadSource(source, filename string) error {
	a.Filename = filename
	a.Source = source

	sink := objfile.NewBinary(&discardSeeker{}, 0, 0, false)

	var listBuf bytes.Buffer
	listSink := listing.New(&listBuf, listing.Addr16)

	reg := newRegistry()
	asm := pass.New(reg, noFiles{}, sink, listSink)
	runErr := asm.Run(filename, source)
	if runErr != nil {
		return fmt.Errorf("assemble: %w", runErr)
	}

	a.Listing = listBuf.String()
	a.ErrorCount = asm.Diags.ErrorCount()

	a.Diagnostics = a.Diagnostics[:0]
	for _, d := range asm.Diags.All() {
		a.Diagnostics = append(a.Diagnostics, d.String())
	}

	lines := make([]xref.SourceLine, 0)
	for i, text := range strings.Split(source, "\n") {
		lines = append(lines, xref.SourceLine{Pos: diag.Position{Filename: filename, Line: i + 1}, Text: text})
	}
	report := xref.Build(asm.Symtab, lines)

	a.Symbols = a.Symbols[:0]
	for _, entry := range report.Entries {
		if !entry.Defined {
			continue
		}
		a.Symbols = append(a.Symbols, SymbolRow{
			Name:  entry.Name,
			Value: fmt.Sprintf("0x%04X", uint32(entry.Value)),
			Refs:  len(entry.References),
		})
	}
	return nil
}

// newRegistry mirrors internal/asmserver's registry wiring.
func newRegistry() *cpu.Registry {
	reg := cpu.NewRegistry()
	reg.Register(mos6502.Def())
	reg.Register(z80.Def())
	return reg
}

// discardSeeker implements io.WriteSeeker by discarding everything: the
// GUI only cares about the listing and symbol table, not the object bytes.
type discardSeeker struct{ pos int64 }

func (d *discardSeeker) Write(p []byte) (int, error) { return len(p), nil }
func (d *discardSeeker) Seek(offset int64, whence int) (int64, error) {
	d.pos = offset
	return d.pos, nil
}
