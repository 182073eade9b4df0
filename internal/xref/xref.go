// Package xref builds a symbol cross-reference report: every label's
// definition site plus every line that refers to it.
//
// Grounded in the teacher's tools/xref.go (XRefGenerator/Symbol/Reference,
// definition/reference collection, sorted formatted report with a summary
// footer), but rebuilt around this assembler's own internal/symtab.Table and
// a line-oriented rescan via internal/lexer instead of ARM's parser.Program
// AST, which this assembler has no equivalent of: spec.md's pass.Assembler
// discards per-line token structure once a line is emitted, so xref reads
// the source text a second time, using the same lexer and the same label-
// column/opcode-word split processLine uses, and cross-checks every other
// identifier on the line against the final symbol table.
package xref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/lexer"
	"github.com/crossasm/asmx/internal/symtab"
)

// Entry is one symbol's full cross-reference record.
type Entry struct {
	Name            string
	Value           int32
	Defined         bool
	MultiplyDefined bool
	DefPos          diag.Position
	References      []diag.Position
}

// Report holds every symbol's cross-reference entry, sorted by name.
type Report struct {
	Entries []*Entry
}

// SourceLine is one line of input, positioned for diagnostics.
type SourceLine struct {
	Pos  diag.Position
	Text string
}

// Build scans lines against the symbols already known in table (normally
// the table a completed two-pass assembly left behind) and produces a
// sorted cross-reference report.
func Build(table *symtab.Table, lines []SourceLine) *Report {
	entries := make(map[string]*Entry)
	order := make([]string, 0)

	get := func(name string) *Entry {
		e, ok := entries[name]
		if !ok {
			e = &Entry{Name: name}
			order = append(order, name)
			entries[name] = e
		}
		return e
	}

	for _, sym := range table.All() {
		e := get(sym.Name)
		e.Value = sym.Value
		e.Defined = sym.Defined
		e.MultiplyDefined = sym.MultiplyDefined
		e.DefPos = sym.DefPos
	}

	lx := lexer.New(lexer.Options{})
	for _, line := range lines {
		label, words := scanLine(lx, line.Text)
		if label != "" {
			if e, ok := entries[label]; ok {
				if e.DefPos == (diag.Position{}) {
					e.DefPos = line.Pos
				}
			}
		}
		for _, w := range words {
			if w == label {
				continue
			}
			if e, ok := entries[w]; ok {
				e.References = append(e.References, line.Pos)
			}
		}
	}

	out := make([]*Entry, 0, len(order))
	for _, name := range order {
		out = append(out, entries[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return &Report{Entries: out}
}

// scanLine splits one raw source line into its column-zero label (if any,
// already upper-cased) and every identifier word in its operand list,
// mirroring the label-column detection in pass.Assembler.processLine. The
// opcode/directive word itself is excluded: it names a mnemonic or
// directive, never a symbol.
func scanLine(lx *lexer.Lexer, text string) (label string, words []string) {
	trimmed := strings.TrimRight(text, "\r\n")
	hasLabelCol := len(trimmed) > 0 && trimmed[0] != ' ' && trimmed[0] != '\t'
	lx.SetLine(trimmed)

	if hasLabelCol {
		kind, word := lx.GetWord()
		if kind == lexer.WordIdentifier {
			label = word
			lx.Expect(':')
		}
	}

	if lx.AtEOL() {
		return label, nil
	}
	lx.GetOpWord() // the opcode or directive word; not a symbol reference

	for {
		kind, word := lx.GetOpWord()
		if kind == lexer.WordEOL {
			break
		}
		if kind == lexer.WordIdentifier {
			words = append(words, word)
		}
	}
	return label, words
}

// Undefined returns every entry whose symbol was referenced but never
// defined, in report order.
func (r *Report) Undefined() []*Entry {
	var out []*Entry
	for _, e := range r.Entries {
		if !e.Defined {
			out = append(out, e)
		}
	}
	return out
}

// Unreferenced returns every defined entry with no recorded reference.
func (r *Report) Unreferenced() []*Entry {
	var out []*Entry
	for _, e := range r.Entries {
		if e.Defined && len(e.References) == 0 {
			out = append(out, e)
		}
	}
	return out
}

// String renders the report the way the teacher's XRefReport does: one
// block per symbol followed by a summary footer.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol Cross-Reference\n")
	fmt.Fprintf(&sb, "=======================\n\n")
	for _, e := range r.Entries {
		status := "defined"
		if !e.Defined {
			status = "undefined"
		} else if e.MultiplyDefined {
			status = "multiply defined"
		}
		fmt.Fprintf(&sb, "%-24s %s", e.Name, status)
		if e.Defined {
			fmt.Fprintf(&sb, " = 0x%X at %s", uint32(e.Value), e.DefPos)
		}
		sb.WriteByte('\n')
		if len(e.References) == 0 {
			sb.WriteString("    (no references)\n")
		} else {
			for _, pos := range e.References {
				fmt.Fprintf(&sb, "    referenced at %s\n", pos)
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "Total symbols: %d, undefined: %d, unreferenced: %d\n",
		len(r.Entries), len(r.Undefined()), len(r.Unreferenced()))
	return sb.String()
}
