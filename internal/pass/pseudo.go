// Pseudo-op handlers implementing spec.md §6.3's dialect summary: data
// directives, ORG/segment control, conditionals' companions (IF/ELSE/
// ELSIF/ENDIF live in assembler.go, dispatched before this table), symbol-
// defining directives, macro definition, and the listing/assertion/file
// directives.
//
// Grounded in the teacher's parser/directives.go-equivalent handling inside
// Parser.handleDirective (a big switch over directive name dispatching to
// per-directive methods), generalized from ARM's fixed directive set to
// spec.md's much larger retargetable dialect.
package pass

import (
	"strconv"
	"strings"

	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/emit"
	"github.com/crossasm/asmx/internal/lexer"
	"github.com/crossasm/asmx/internal/macro"
	"github.com/crossasm/asmx/internal/zscii"
)

// registerPseudoOps populates the label-consuming and ordinary pseudo-op
// tables dispatch() consults, per spec.md §6.3.
func (a *Assembler) registerPseudoOps() {
	a.pseudoOps = make(map[string]pseudoHandler)
	a.labelPseudoOps = make(map[string]labelPseudoHandler)

	for _, n := range []string{"DB", "FCB", "BYTE", "DC.B", "DFB", "DEFB", "DEFM"} {
		a.pseudoOps[n] = (*Assembler).pOpDB
	}
	for _, n := range []string{"DW", "FDB", "WORD", "DC.W", "DA", "DEFW"} {
		a.pseudoOps[n] = (*Assembler).pOpDW
	}
	a.pseudoOps["DRW"] = (*Assembler).pOpDRW
	for _, n := range []string{"DL", "LONG", "DC.L"} {
		a.pseudoOps[n] = (*Assembler).pOpDL
	}

	reserve1 := func(a *Assembler, pos diag.Position) { a.doReserve(1) }
	reserve2 := func(a *Assembler, pos diag.Position) { a.doReserve(2) }
	reserve4 := func(a *Assembler, pos diag.Position) { a.doReserve(4) }
	for _, n := range []string{"DS", "RMB", "BLKB", "DEFS"} {
		a.pseudoOps[n] = reserve1
	}
	a.pseudoOps["DS.W"] = reserve2
	a.pseudoOps["DS.L"] = reserve4

	a.pseudoOps["HEX"] = (*Assembler).pOpHex
	a.pseudoOps["FCC"] = (*Assembler).pOpFCC
	a.pseudoOps["ZSCII"] = (*Assembler).pOpZSCII
	a.pseudoOps["ASCIIC"] = (*Assembler).pOpASCIIC
	a.pseudoOps["ASCIZ"] = (*Assembler).pOpASCIZ
	a.pseudoOps["ASCIIZ"] = (*Assembler).pOpASCIZ

	a.pseudoOps["ALIGN"] = (*Assembler).pOpAlign
	a.pseudoOps["EVEN"] = (*Assembler).pOpEven
	a.pseudoOps["END"] = (*Assembler).pOpEnd
	a.pseudoOps["INCLUDE"] = (*Assembler).pOpInclude
	a.pseudoOps["INCBIN"] = (*Assembler).pOpIncbin
	a.pseudoOps["PROCESSOR"] = (*Assembler).pOpProcessor
	a.pseudoOps["CPU"] = (*Assembler).pOpProcessor

	a.pseudoOps["ORG"] = (*Assembler).pOpOrg
	a.pseudoOps["AORG"] = (*Assembler).pOpOrg
	a.pseudoOps["RORG"] = (*Assembler).pOpRorg
	a.pseudoOps["REND"] = (*Assembler).pOpRend

	a.pseudoOps["LIST"] = (*Assembler).pOpList
	a.pseudoOps["OPT"] = (*Assembler).pOpOpt
	a.pseudoOps["ERROR"] = (*Assembler).pOpError
	a.pseudoOps["ASSERT"] = (*Assembler).pOpAssert

	a.pseudoOps["SEG"] = (*Assembler).pOpSeg
	a.pseudoOps["RSEG"] = (*Assembler).pOpSeg
	a.pseudoOps["SEG.U"] = (*Assembler).pOpSegU

	a.pseudoOps["WORDSIZE"] = (*Assembler).pOpWordsize
	a.pseudoOps["ENDM"] = (*Assembler).pOpStrayEndm

	a.labelPseudoOps["EQU"] = (*Assembler).pOpEqu
	a.labelPseudoOps["="] = (*Assembler).pOpEqu
	a.labelPseudoOps["SET"] = (*Assembler).pOpSet
	a.labelPseudoOps[":="] = (*Assembler).pOpSet
	a.labelPseudoOps["DEFL"] = (*Assembler).pOpSet
	a.labelPseudoOps["MACRO"] = (*Assembler).pOpMacro
	a.labelPseudoOps["SUBR"] = (*Assembler).pOpSubr
	a.labelPseudoOps["SUBROUTINE"] = (*Assembler).pOpSubr
}

// readWord reads the next operand as a bare word (identifier or punctuation
// run), skipping leading blanks; used for segment/CPU names.
func (a *Assembler) readWord() string {
	_, w := a.lx.GetWord()
	return w
}

// readFilename reads a quoted or bare filename operand, consuming the rest
// of the line for a bare name (file names may contain characters an
// identifier scan would stop at, e.g. '.' or '/').
func (a *Assembler) readFilename() (string, bool) {
	if a.lx.AtEOL() {
		return "", false
	}
	if c := a.lx.PeekPunct(); c == '"' || c == '\'' {
		return a.lx.ReadQuotedString()
	}
	rest := strings.TrimSpace(a.lx.Remaining())
	a.lx.SetPos(len(a.lx.Line()))
	return rest, rest != ""
}

// readDelimited reads FCC's delimiter-bounded string: the first non-blank
// character is the delimiter, consumed but not itself part of the result.
func (a *Assembler) readDelimited() (string, bool) {
	if a.lx.AtEOL() {
		return "", false
	}
	line := a.lx.Line()
	pos := a.lx.Pos()
	delim := line[pos]
	pos++
	start := pos
	for pos < len(line) && line[pos] != delim {
		pos++
	}
	s := line[start:pos]
	if pos < len(line) {
		pos++
	}
	a.lx.SetPos(pos)
	return s, true
}

// Data directives -------------------------------------------------------

func (a *Assembler) pOpDB(pos diag.Position) {
	a.embuf.MarkData()
	for {
		if a.lx.AtEOL() {
			break
		}
		if c := a.lx.PeekPunct(); c == '\'' || c == '"' {
			s, _ := a.lx.ReadQuotedString()
			for i := 0; i < len(s); i++ {
				a.embuf.AddB(s[i])
			}
		} else {
			v, _, err := a.Eval()
			if err != nil {
				a.Errorf("%s", err)
			}
			b, err := emit.EvalByte(v)
			if err != nil {
				a.Warnf("%s", err)
			}
			a.embuf.AddB(b)
		}
		if !a.lx.Expect(',') {
			break
		}
	}
}

func (a *Assembler) pOpDW(pos diag.Position) {
	a.embuf.MarkData()
	for {
		if a.lx.AtEOL() {
			break
		}
		if c := a.lx.PeekPunct(); c == '\'' || c == '"' {
			s, _ := a.lx.ReadQuotedString()
			for i := 0; i < len(s); i++ {
				a.embuf.AddB(s[i])
			}
			if len(s)%2 != 0 {
				a.embuf.AddB(0)
			}
		} else {
			v, _, err := a.Eval()
			if err != nil {
				a.Errorf("%s", err)
			}
			a.embuf.AddW(uint16(v))
		}
		if !a.lx.Expect(',') {
			break
		}
	}
}

func (a *Assembler) pOpDRW(pos diag.Position) {
	a.embuf.MarkData()
	for {
		if a.lx.AtEOL() {
			break
		}
		v, _, err := a.Eval()
		if err != nil {
			a.Errorf("%s", err)
		}
		a.embuf.AddWReversed(uint16(v))
		if !a.lx.Expect(',') {
			break
		}
	}
}

func (a *Assembler) pOpDL(pos diag.Position) {
	a.embuf.MarkData()
	for {
		if a.lx.AtEOL() {
			break
		}
		if c := a.lx.PeekPunct(); c == '\'' || c == '"' {
			s, _ := a.lx.ReadQuotedString()
			for i := 0; i < len(s); i++ {
				a.embuf.AddB(s[i])
			}
			for len(s)%4 != 0 {
				a.embuf.AddB(0)
				s += " "
			}
		} else {
			v, _, err := a.Eval()
			if err != nil {
				a.Errorf("%s", err)
			}
			a.embuf.AddL(uint32(v))
		}
		if !a.lx.Expect(',') {
			break
		}
	}
}

// doReserve implements DS/RMB/BLKB/DEFS/DS.W/DS.L: reserve count units of
// the given byte width, filled with an optional value (default zero).
func (a *Assembler) doReserve(unit int) {
	n, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	var fill int32
	if a.lx.Expect(',') {
		fill, _, err = a.Eval()
		if err != nil {
			a.Errorf("%s", err)
		}
	}
	if n < 0 {
		a.Errorf("reserve count %d is negative", n)
		return
	}
	a.embuf.MarkData()
	for i := int32(0); i < n; i++ {
		switch unit {
		case 1:
			b, _ := emit.EvalByte(fill)
			a.embuf.AddB(b)
		case 2:
			a.embuf.AddW(uint16(fill))
		case 4:
			a.embuf.AddL(uint32(fill))
		}
	}
}

func (a *Assembler) pOpHex(pos diag.Position) {
	a.embuf.MarkData()
	rest := strings.TrimSpace(a.lx.Remaining())
	a.lx.SetPos(len(a.lx.Line()))
	for _, tok := range strings.Fields(rest) {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			a.Errorf("invalid HEX byte %q", tok)
			continue
		}
		a.embuf.AddB(byte(v))
	}
}

func (a *Assembler) pOpFCC(pos diag.Position) {
	a.embuf.MarkData()
	s, ok := a.readDelimited()
	if !ok {
		a.Errorf("FCC requires a delimited string")
		return
	}
	for i := 0; i < len(s); i++ {
		a.embuf.AddB(s[i])
	}
}

func (a *Assembler) pOpZSCII(pos diag.Position) {
	a.embuf.MarkData()
	a.lx.AtEOL()
	s, ok := a.lx.ReadQuotedString()
	if !ok {
		a.Errorf("ZSCII requires a quoted string")
		return
	}
	for _, w := range zscii.Encode(s) {
		a.embuf.AddW(w)
	}
}

func (a *Assembler) pOpASCIIC(pos diag.Position) {
	a.embuf.MarkData()
	a.lx.AtEOL()
	s, ok := a.lx.ReadQuotedString()
	if !ok {
		a.Errorf("ASCIIC requires a quoted string")
		return
	}
	if len(s) > 255 {
		a.Errorf("ASCIIC string longer than 255 bytes")
		s = s[:255]
	}
	a.embuf.AddB(byte(len(s)))
	for i := 0; i < len(s); i++ {
		a.embuf.AddB(s[i])
	}
}

func (a *Assembler) pOpASCIZ(pos diag.Position) {
	a.embuf.MarkData()
	a.lx.AtEOL()
	s, ok := a.lx.ReadQuotedString()
	if !ok {
		a.Errorf("ASCIZ requires a quoted string")
		return
	}
	for i := 0; i < len(s); i++ {
		a.embuf.AddB(s[i])
	}
	a.embuf.AddB(0)
}

// Location/segment directives --------------------------------------------

func (a *Assembler) pOpAlign(pos diag.Position) {
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	if err := a.Segs.Align(uint32(v)); err != nil {
		a.Errorf("%s", err)
	}
}

func (a *Assembler) pOpEven(pos diag.Position) {
	if err := a.Segs.Align(2); err != nil {
		a.Errorf("%s", err)
	}
}

func (a *Assembler) pOpEnd(pos diag.Position) {
	if a.activeReader != nil && a.activeReader.InMacro() {
		a.Errorf("END inside a macro")
	}
	if !a.lx.AtEOL() {
		v, _, err := a.Eval()
		if err != nil {
			a.Errorf("%s", err)
		} else {
			a.transfer = uint32(v)
			a.hasXfer = true
		}
	}
	a.endSeen = true
}

func (a *Assembler) pOpInclude(pos diag.Position) {
	name, ok := a.readFilename()
	if !ok {
		a.Errorf("INCLUDE requires a file name")
		return
	}
	content, err := a.Files.ReadFile(name)
	if err != nil {
		a.Errorf("cannot open include file %q: %s", name, err)
		return
	}
	if a.activeReader == nil {
		return
	}
	if err := a.activeReader.PushInclude(NewFileReader(name, string(content))); err != nil {
		a.fatalf("%s", err)
	}
}

func (a *Assembler) pOpIncbin(pos diag.Position) {
	name, ok := a.readFilename()
	if !ok {
		a.Errorf("INCBIN requires a file name")
		return
	}
	content, err := a.Files.ReadFile(name)
	if err != nil {
		a.Errorf("cannot open binary file %q: %s", name, err)
		return
	}
	a.embuf.MarkData()
	for _, b := range content {
		a.embuf.AddB(b)
	}
}

func (a *Assembler) pOpProcessor(pos diag.Position) {
	// CPU names may be purely numeric (6502, 8051, 8085), which GetWord's
	// identifier grammar would reject outright.
	name := a.lx.ReadBareToken()
	def, ok := a.CPUs.Lookup(name)
	if !ok {
		a.Errorf("unknown CPU %q", name)
		return
	}
	a.switchCPU(def)
}

// switchCPU installs def as the current CPU, reconfiguring the emission
// buffer's endianness and the segment table's address-width mask for the
// `.name`/`PROCESSOR`/`CPU` mid-file CPU switch spec.md §4.8 describes.
func (a *Assembler) switchCPU(def *cpu.Def) {
	a.CurCPU = def
	if def.BigEndian {
		a.embuf.SetEndian(emit.BigEndian)
	} else {
		a.embuf.SetEndian(emit.LittleEndian)
	}
	a.Segs.SetAddrBits(def.AddrWidth)
	if a.Obj != nil {
		a.Obj.SetCPUAddrWidth(def.AddrWidth)
	}
	if w, ok := a.List.(addrWidthSetter); ok {
		w.SetAddrWidth(def.AddrWidth)
	}
}

// addrWidthSetter is implemented by listing sinks (internal/listing.Writer)
// that reformat their address column on a mid-file CPU switch; a.List
// need not implement it.
type addrWidthSetter interface {
	SetAddrWidth(bits int)
}

func (a *Assembler) pOpOrg(pos diag.Position) {
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	a.Segs.Org(uint32(v))
}

func (a *Assembler) pOpRorg(pos diag.Position) {
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	a.Segs.Rorg(uint32(v))
}

func (a *Assembler) pOpRend(pos diag.Position) {
	if err := a.Segs.Rend(); err != nil {
		a.Errorf("%s", err)
	}
}

func (a *Assembler) pOpSeg(pos diag.Position) {
	name := a.readWord()
	a.Segs.Switch(name, true)
}

func (a *Assembler) pOpSegU(pos diag.Position) {
	name := a.readWord()
	a.Segs.Switch(name, false)
}

func (a *Assembler) pOpWordsize(pos diag.Position) {
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	cpuDefault := 8
	if a.CurCPU != nil && a.CurCPU.WordSize != 0 {
		cpuDefault = a.CurCPU.WordSize
	}
	if err := a.Segs.SetWordSize(int(v), cpuDefault); err != nil {
		a.Errorf("%s", err)
	}
}

// Listing/diagnostic directives -------------------------------------------

func (a *Assembler) pOpList(pos diag.Position) { a.applyListOptions() }
func (a *Assembler) pOpOpt(pos diag.Position)  { a.applyListOptions() }

func (a *Assembler) applyListOptions() {
	for {
		word := strings.ToUpper(a.readWord())
		if word == "" {
			break
		}
		switch word {
		case "ON":
			a.flags.List = true
		case "OFF":
			a.flags.List = false
		case "MACRO":
			a.flags.ListMac = true
		case "NOMACRO":
			a.flags.ListMac = false
		case "EXPAND":
			a.flags.ExpandHex = true
		case "NOEXPAND":
			a.flags.ExpandHex = false
		case "SYM":
			a.flags.SymTab = true
		case "NOSYM":
			a.flags.SymTab = false
		case "TEMP":
			a.flags.TempSym = true
		case "NOTEMP":
			a.flags.TempSym = false
		case "EXACT":
			a.flags.Exact = true
		case "NOEXACT":
			a.flags.Exact = false
		default:
			a.Errorf("unknown LIST/OPT option %q", word)
		}
		if !a.lx.Expect(',') {
			break
		}
	}
}

func (a *Assembler) pOpError(pos diag.Position) {
	msg := strings.TrimSpace(a.lx.Remaining())
	a.lx.SetPos(len(a.lx.Line()))
	a.Errorf("%s", msg)
}

func (a *Assembler) pOpAssert(pos diag.Position) {
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	if v == 0 {
		a.Errorf("assertion failed")
	}
}

func (a *Assembler) pOpStrayEndm(pos diag.Position) {
	a.Errorf("ENDM outside a macro definition")
}

// Symbol-defining directives ------------------------------------------------

func (a *Assembler) pOpEqu(label string, pos diag.Position) {
	if label == "" {
		a.Errorf("EQU requires a label")
		return
	}
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
	}
	if err := a.Symtab.Def(label, v, false, true, pos); err != nil {
		a.reportDefError(err)
	}
}

func (a *Assembler) pOpSet(label string, pos diag.Position) {
	if label == "" {
		a.Errorf("SET requires a label")
		return
	}
	v, _, err := a.Eval()
	if err != nil {
		a.Errorf("%s", err)
	}
	if err := a.Symtab.Def(label, v, true, false, pos); err != nil {
		a.reportDefError(err)
	}
}

func (a *Assembler) pOpSubr(label string, pos diag.Position) {
	name := label
	if name == "" {
		name = a.readWord()
	}
	if name == "" {
		a.Errorf("SUBR/SUBROUTINE requires a name")
		return
	}
	a.defineLocLabel(name)
	a.Symtab.SetSubrLabel(name)
}

// Macro definition --------------------------------------------------------

func (a *Assembler) pOpMacro(label string, pos diag.Position) {
	name := label
	if name == "" {
		name = a.readWord()
	}
	if name == "" {
		a.Errorf("MACRO requires a name")
		return
	}
	var params []string
	for {
		if a.lx.AtEOL() {
			break
		}
		w := a.readWord()
		if w == "" {
			break
		}
		params = append(params, w)
		if !a.lx.Expect(',') {
			break
		}
	}
	m := a.Macros.Begin(name, params, pos)
	if m.TooManyParams {
		a.Errorf("macro %q declares more than %d parameters", name, macro.MaxParams)
	}
	a.captureMacroBody(m)
}

// captureMacroBody reads raw lines directly from the active reader (not
// through processLine: a macro body is stored verbatim, never assembled at
// definition time) until a line whose first word is ENDM at nesting depth
// zero. Only IF/ENDIF change nesting, per spec.md §4.4 — a nested MACRO
// inside a macro body does not, since this dialect has no macro-local
// macros.
func (a *Assembler) captureMacroBody(m *macro.Macro) {
	depth := 0
	for {
		if a.activeReader == nil {
			break
		}
		line, pos, ok := a.activeReader.NextLine()
		if !ok {
			a.Diags.Errorf(pos, a.pass, "missing ENDM before end of file")
			return
		}
		word := firstDirectiveWord(line)
		isIf, isEndif, isEndm := macro.IsDirectiveWord(word)
		switch {
		case isIf:
			depth++
		case isEndif:
			if depth > 0 {
				depth--
			}
		case isEndm && depth == 0:
			a.Macros.End(m)
			return
		}
		m.CaptureLine(line)
	}
}

// firstDirectiveWord extracts a captured macro-body line's opcode word
// (skipping any column-zero label) without disturbing the assembler's own
// lexer, which may be mid-dispatch of the enclosing MACRO line.
func firstDirectiveWord(line string) string {
	trimmed := strings.TrimRight(line, "\r\n")
	hasLabel := len(trimmed) > 0 && trimmed[0] != ' ' && trimmed[0] != '\t'
	tmp := lexer.New(lexer.Options{})
	tmp.SetLine(trimmed)
	if hasLabel {
		kind, _ := tmp.GetWord()
		if kind == lexer.WordIdentifier {
			tmp.Expect(':')
		}
	}
	if tmp.AtEOL() {
		return ""
	}
	_, w := tmp.GetOpWord()
	return w
}
