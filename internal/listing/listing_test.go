package listing_test

import (
	"bytes"
	"testing"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/listing"
	"github.com/crossasm/asmx/internal/symtab"
	"github.com/stretchr/testify/assert"
)

func TestWriter_LineWithBytesAndSource(t *testing.T) {
	var buf bytes.Buffer
	w := listing.New(&buf, listing.Addr16)

	pos := diag.Position{Filename: "main.asm", Line: 1}
	w.Line(pos, 0x2000, []byte{0xA9, 0x42}, []bool{false, true}, "LDA #$42", nil)
	assert.NoError(t, w.Finish())

	out := buf.String()
	assert.Contains(t, out, "2000")
	assert.Contains(t, out, "A9 42")
	assert.Contains(t, out, "LDA #$42")
}

func TestWriter_DiagnosticAnnotation(t *testing.T) {
	var buf bytes.Buffer
	w := listing.New(&buf, listing.Addr16)

	pos := diag.Position{Filename: "main.asm", Line: 3}
	d := &diag.Diagnostic{Pos: pos, Sev: diag.Error, Message: "undefined symbol FOO", Pass: 2}
	w.Line(pos, 0, nil, nil, "  LDA FOO", []*diag.Diagnostic{d})
	assert.NoError(t, w.Finish())

	assert.Contains(t, buf.String(), "*** Error: undefined symbol FOO ***")
}

func TestWriter_ContinuationLineOverflow(t *testing.T) {
	var buf bytes.Buffer
	w := listing.New(&buf, listing.Addr16)

	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i)
	}
	w.Line(diag.Position{Filename: "x.asm", Line: 1}, 0, data, nil, "HEX 00,01,...", nil)
	assert.NoError(t, w.Finish())

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestWriter_SymbolTable(t *testing.T) {
	var buf bytes.Buffer
	w := listing.New(&buf, listing.Addr16)

	syms := []*symtab.Symbol{
		{Name: "START", Value: 0x2000, Defined: true},
		{Name: "UNDEF", Defined: false},
	}
	w.SymbolTable(syms)
	assert.NoError(t, w.Finish())

	out := buf.String()
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "UNDEF")
}
