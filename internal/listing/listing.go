// Package listing implements the listing writer of spec.md §6's "address +
// hex-bytes + source layout, overflow to continuation lines": one rendered
// line per source line in pass 2, an inline annotation for any diagnostic
// raised on that line, and a trailing sorted symbol-table dump.
//
// Grounded in the original assembler's LIST_Addr/LIST_Byte/LIST_Loc
// column-building and its TEXT_ListOut/TEXT_CopyListLine output routine
// (asmx.c), condensed from a fixed-width mutable line buffer into a
// builder that appends one record (address, bytes, spacing hints, source)
// per Line call. The teacher carries no listing concept (a VM trace is not
// an assembly listing), so there is no teacher file to generalize here.
package listing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/pass"
	"github.com/crossasm/asmx/internal/symtab"
)

// bytesPerLine caps how many hex bytes appear before wrapping to a
// continuation line, the narrow (LIST_16) column width.
const bytesPerLine = 8

// AddrWidth selects how many hex digits the address field uses, matching
// a CPU's AddrWidth (16, 24, or 32 bits).
type AddrWidth int

const (
	Addr16 AddrWidth = 16
	Addr24 AddrWidth = 24
	Addr32 AddrWidth = 32
)

func (w AddrWidth) digits() int {
	switch w {
	case Addr24:
		return 6
	case Addr32:
		return 8
	default:
		return 4
	}
}

// Writer renders the listing to w, implementing pass.ListingSink.
type Writer struct {
	out       *bufio.Writer
	addrWidth AddrWidth
	err       error
}

var _ pass.ListingSink = (*Writer)(nil)

// New returns a listing writer over w at the given address width.
func New(w io.Writer, addrWidth AddrWidth) *Writer {
	return &Writer{out: bufio.NewWriter(w), addrWidth: addrWidth}
}

// SetAddrWidth reconfigures the address field width, for a mid-assembly
// `PROCESSOR`/`CPU` switch to a back end with a different address width.
func (w *Writer) SetAddrWidth(bits int) {
	switch bits {
	case 24:
		w.addrWidth = Addr24
	case 32:
		w.addrWidth = Addr32
	default:
		w.addrWidth = Addr16
	}
}

// Line renders one source line's listing record: address, hex bytes
// (wrapped onto continuation lines past bytesPerLine, with the "space
// before" bitset separating opcode from operand bytes), and source text,
// followed by one annotation line per diagnostic raised here.
func (w *Writer) Line(pos diag.Position, cod uint32, bytes []byte, spaceBefore []bool, source string, diags []*diag.Diagnostic) {
	if w.err != nil {
		return
	}
	addrField := fmt.Sprintf("%0*X", w.addrWidth.digits(), cod)
	hexField := w.hexColumn(bytes, spaceBefore, 0, bytesPerLine)
	w.writeLine(fmt.Sprintf("%-8s %-*s %s", addrField, bytesPerLine*3, hexField, source))

	for i := bytesPerLine; i < len(bytes); i += bytesPerLine {
		cont := w.hexColumn(bytes, spaceBefore, i, bytesPerLine)
		w.writeLine(fmt.Sprintf("%-8s %s", "", cont))
	}

	for _, d := range diags {
		w.writeLine(fmt.Sprintf("%s: *** %s: %s ***", d.Pos, capitalize(d.Sev.String()), d.Message))
	}
}

// hexColumn renders up to n bytes of bytes starting at offset start as
// two-hex-digit groups, inserting a blank before any byte whose
// spaceBefore bit is set (the opcode/operand separation spec.md §4.7
// describes), and none at all if spaceBefore is nil (the data-directive
// case, spec.md's negative instrLen convention).
func (w *Writer) hexColumn(bytes []byte, spaceBefore []bool, start, n int) string {
	end := start + n
	if end > len(bytes) {
		end = len(bytes)
	}
	out := ""
	for i := start; i < end; i++ {
		if i > start && spaceBefore != nil && i < len(spaceBefore) && spaceBefore[i] {
			out += " "
		}
		out += fmt.Sprintf("%02X", bytes[i])
	}
	return out
}

func (w *Writer) writeLine(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.out.WriteString(s); err != nil {
		w.err = err
		return
	}
	if err := w.out.WriteByte('\n'); err != nil {
		w.err = err
	}
}

// SymbolTable renders the sorted symbol dump that closes the listing.
func (w *Writer) SymbolTable(syms []*symtab.Symbol) {
	if len(syms) == 0 {
		return
	}
	w.writeLine("")
	w.writeLine("Symbol table:")
	for _, s := range syms {
		flag := ' '
		switch {
		case s.MultiplyDefined:
			flag = '!'
		case !s.Defined:
			flag = '?'
		}
		w.writeLine(fmt.Sprintf("%-32s %08X %c", s.Name, uint32(s.Value), flag))
	}
}

// Finish flushes buffered output.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	return w.out.Flush()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
