package pass

import (
	"fmt"
	"strings"

	"github.com/crossasm/asmx/internal/cond"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/emit"
	"github.com/crossasm/asmx/internal/expr"
	"github.com/crossasm/asmx/internal/lexer"
	"github.com/crossasm/asmx/internal/macro"
	"github.com/crossasm/asmx/internal/segment"
	"github.com/crossasm/asmx/internal/symtab"
)

// ObjectSink receives emitted bytes and end-of-assembly transfer-address
// information; internal/objfile's writers implement it.
type ObjectSink interface {
	WriteCode(addr uint32, data []byte)
	SetCPUAddrWidth(bits int)
	SetTransferAddress(addr uint32)
	Finish() error
}

// ListingSink receives one rendered line per source line in pass 2, plus
// the final sorted symbol dump; internal/listing implements it.
type ListingSink interface {
	Line(pos diag.Position, cod uint32, bytes []byte, spaceBefore []bool, source string, diags []*diag.Diagnostic)
	SymbolTable(syms []*symtab.Symbol)
	Finish() error
}

// FileSource abstracts reading INCLUDE/INCBIN files, so the driver is
// testable without touching a real filesystem.
type FileSource interface {
	ReadFile(name string) ([]byte, error)
}

// ListFlags mirrors spec.md §4.9's per-pass default flag set.
type ListFlags struct {
	List       bool
	ExpandHex  bool
	SymTab     bool
	TempSym    bool
	ListMac    bool
	Exact      bool
	ListPass1  bool // cl_ListP1: list pass-1 diagnostics; nothing sets it, so it stays false
}

func defaultListFlags() ListFlags {
	return ListFlags{List: true, ExpandHex: true, SymTab: true, TempSym: true}
}

// Assembler is the single threaded-through value of spec.md §9's "Global
// mutable state" note: current segment, current CPU, pass number,
// condition stack, last-label strings, and evalKnown all live here.
type Assembler struct {
	Diags  *diag.List
	Symtab *symtab.Table
	Macros *macro.Table
	Cond   *cond.Stack
	Segs   *segment.Table
	CPUs   *cpu.Registry
	CurCPU *cpu.Def

	Files FileSource
	Obj   ObjectSink
	List  ListingSink

	// lx and embuf back the cpu.Context methods Lexer() and Emit() below.
	// They can't share those names as fields: Go forbids a field and a
	// method of the same name on one type.
	lx    *lexer.Lexer
	embuf *emit.Buffer

	pass      int
	flags     ListFlags
	curPos    diag.Position
	curLabel  string
	evalKnown bool
	endSeen   bool
	transfer  uint32
	hasXfer   bool

	// activeReader is the line source of the pass currently running,
	// recovered by invokeMacro to push a new macro-expansion frame.
	activeReader *Reader

	// fatalErr is set by fatalf; runPass stops at the next opportunity and
	// Run propagates it, per spec.md §7's "abort with nonzero exit".
	fatalErr error

	pseudoOps      map[string]pseudoHandler
	labelPseudoOps map[string]labelPseudoHandler
	baseDir        string
}

type pseudoHandler func(a *Assembler, pos diag.Position)
type labelPseudoHandler func(a *Assembler, label string, pos diag.Position)

// New creates an Assembler over the given CPU registry. Register every back
// end in cpus before calling Run.
func New(cpus *cpu.Registry, files FileSource, obj ObjectSink, list ListingSink) *Assembler {
	a := &Assembler{
		Diags:  &diag.List{},
		lx:     lexer.New(lexer.Options{}),
		Symtab: symtab.New(),
		Macros: macro.New(),
		Cond:   cond.New(),
		CPUs:   cpus,
		Files:  files,
		Obj:    obj,
		List:   list,
	}
	a.registerPseudoOps()
	return a
}

// cpu.Context implementation -------------------------------------------

func (a *Assembler) Lexer() *lexer.Lexer { return a.lx }
func (a *Assembler) Emit() *emit.Buffer  { return a.embuf }

// Eval evaluates one expression from the current lexer position. A symbol
// unknown in pass 2 can only be one never defined anywhere in the file
// (pass 1 already ran to completion, so any symbol defined on a later line
// is already known per spec.md §4.3's Ref semantics), so pass 2 treats
// that as the "undefined symbol" error spec.md §7 requires; pass 1 only
// marks the expression not-yet-known, per the same section.
func (a *Assembler) Eval() (int32, bool, error) {
	ev := expr.New(a.lx, expr.Context{Loc: int32(a.Segs.RawLoc()), WordDiv: int32(a.Segs.WordDiv()), Syms: a.Symtab}, a.Warnf)
	v, err := ev.Eval()
	known := ev.Known()
	if !known {
		a.evalKnown = false
		if a.pass == 2 && err == nil {
			a.Errorf("expression contains an undefined symbol")
		}
	}
	return v, known, err
}

func (a *Assembler) Loc() int32 { return a.Segs.Loc() }

func (a *Assembler) Warnf(format string, args ...any) {
	a.Diags.Warnf(a.curPos, a.pass, format, args...)
}

func (a *Assembler) Errorf(format string, args ...any) {
	a.Diags.Errorf(a.curPos, a.pass, format, args...)
}

func (a *Assembler) fatalf(format string, args ...any) {
	a.Diags.Add(a.curPos, diag.Fatal, a.pass, format, args...)
	a.fatalErr = fmt.Errorf(format, args...)
}

// BeginPass resets per-pass state: segments, conditional stack, list
// flags, default CPU, evalKnown, and invokes every registered back end's
// PassInit, per spec.md §4.9.
func (a *Assembler) BeginPass(pass int) {
	a.pass = pass
	a.Symtab.BeginPass(pass)
	a.Cond.Reset()
	a.flags = defaultListFlags()
	a.endSeen = false
	a.evalKnown = true
	a.fatalErr = nil

	dflt := a.CPUs.Default()
	a.CurCPU = dflt
	addrWidth := 16
	endian := emit.LittleEndian
	if dflt != nil {
		addrWidth = dflt.AddrWidth
		if dflt.BigEndian {
			endian = emit.BigEndian
		}
	}
	a.Segs = segment.New("CODE", addrWidth)
	if dflt != nil {
		_ = a.Segs.SetWordSize(0, dflt.WordSize)
	}
	a.embuf = emit.New(endian)
	if a.Obj != nil {
		a.Obj.SetCPUAddrWidth(addrWidth)
	}

	for _, name := range a.CPUs.Names() {
		def, _ := a.CPUs.Lookup(name)
		if pi, ok := def.Backend.(cpu.PassIniter); ok {
			pi.PassInit()
		}
	}
}

// Run assembles mainFile across both passes, then finalizes the object
// and listing sinks.
func (a *Assembler) Run(mainFilename string, mainContent string) error {
	for pass := 1; pass <= 2; pass++ {
		a.BeginPass(pass)
		reader, err := NewReader(a.Macros, NewFileReader(mainFilename, mainContent))
		if err != nil {
			return err
		}
		if err := a.runPass(reader); err != nil {
			return err
		}
		if err := a.Cond.AtFileEnd(); err != nil {
			a.Diags.Errorf(a.curPos, pass, "%s", err)
		}
	}
	if a.Obj != nil {
		if a.hasXfer {
			a.Obj.SetTransferAddress(a.transfer)
		}
		if err := a.Obj.Finish(); err != nil {
			return err
		}
	}
	if a.List != nil {
		a.List.SymbolTable(a.Symtab.Sorted())
		if err := a.List.Finish(); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) runPass(reader *Reader) error {
	a.activeReader = reader
	defer func() { a.activeReader = nil }()
	for {
		if a.endSeen {
			return nil
		}
		line, pos, ok := reader.NextLine()
		if !ok {
			return nil
		}
		a.curPos = pos
		a.processLine(line)
		if a.fatalErr != nil {
			return a.fatalErr
		}
	}
}

// processLine implements spec.md §4.8's per-line flow: optional
// column-zero label, then opcode dispatch in precedence order.
func (a *Assembler) processLine(text string) {
	a.embuf.Clear()
	trimmed := strings.TrimRight(text, "\r\n")
	hasLabelCol := len(trimmed) > 0 && trimmed[0] != ' ' && trimmed[0] != '\t'
	a.lx.SetLine(trimmed)

	var label string
	if hasLabelCol {
		save := a.lx.Pos()
		kind, word := a.lx.GetWord()
		if kind == lexer.WordIdentifier {
			label = word
			if !a.lx.Expect(':') {
				// A directive or mnemonic written in column zero without a
				// colon is the line's opcode, not a label.
				isOp := a.pseudoOps[word] != nil || word == "IF" || word == "ELSIF" || word == "ELSE" || word == "ENDIF"
				if !isOp && a.CurCPU != nil {
					_, _, isOp = cpu.MatchOpcode(a.CurCPU.Opcodes, word)
				}
				if isOp {
					label = ""
					a.lx.SetPos(save)
				}
			}
		}
	}
	a.curLabel = label

	if a.lx.AtEOL() {
		if label != "" && a.Cond.Active() {
			a.defineLocLabel(label)
		}
		a.flushLine(text)
		return
	}

	_, word := a.lx.GetOpWord()

	if !a.Cond.Active() {
		a.dispatchInactiveConditional(word)
		a.flushLine(text)
		return
	}

	switch word {
	case "IF":
		v, _, _ := a.Eval()
		if err := a.Cond.If(v != 0); err != nil {
			a.Errorf("%s", err)
		}
		a.flushLine(text)
		return
	case "ELSIF":
		v, _, _ := a.Eval()
		if err := a.Cond.Elsif(v != 0); err != nil {
			a.Errorf("%s", err)
		}
		a.flushLine(text)
		return
	case "ELSE":
		if err := a.Cond.Else(); err != nil {
			a.Errorf("%s", err)
		}
		a.flushLine(text)
		return
	case "ENDIF":
		if err := a.Cond.Endif(); err != nil {
			a.Errorf("%s", err)
		}
		a.flushLine(text)
		return
	}

	a.dispatch(word)
	a.flushLine(text)
}

// dispatchInactiveConditional implements spec.md §4.5's "inside a false
// frame, only IF/ELSE/ELSIF/ENDIF tracking runs."
func (a *Assembler) dispatchInactiveConditional(word string) {
	switch word {
	case "IF":
		_ = a.Cond.If(false)
	case "ELSIF":
		v, _, _ := a.Eval()
		_ = v
		_ = a.Cond.Elsif(false)
	case "ELSE":
		_ = a.Cond.Else()
	case "ENDIF":
		_ = a.Cond.Endif()
	}
}

// labelOnlyNames are the pseudo-ops that consume the line's label themselves rather than
// having it auto-defined as a location-counter symbol.
var labelOnlyNames = map[string]bool{
	"EQU": true, "=": true, "SET": true, ":=": true, "DEFL": true,
	"MACRO": true, "SUBR": true, "SUBROUTINE": true,
}

func (a *Assembler) dispatch(word string) {
	if a.CurCPU != nil {
		if entry, remainder, ok := cpu.MatchOpcode(a.CurCPU.Opcodes, word); ok {
			if remainder != "" {
				a.lx.SetPos(a.lx.Pos() - len(remainder))
			}
			a.dispatchCPUEntry(entry)
			return
		}
	}

	upper := strings.ToUpper(word)
	if labelOnlyNames[upper] {
		if h, ok := a.labelPseudoOps[upper]; ok {
			h(a, a.curLabel, a.curPos)
			return
		}
	}

	if a.curLabel != "" {
		a.defineLocLabel(a.curLabel)
	}

	if h, ok := a.pseudoOps[upper]; ok {
		h(a, a.curPos)
		return
	}

	if _, ok := a.Macros.Lookup(upper); ok {
		a.invokeMacro(upper)
		return
	}

	if strings.HasPrefix(word, ".") {
		name := word[1:]
		if def, ok := a.CPUs.Lookup(name); ok {
			a.switchCPU(def)
			return
		}
	}

	a.Errorf("unknown opcode or directive %q", word)
}

func (a *Assembler) dispatchCPUEntry(entry cpu.OpEntry) {
	if entry.Type >= cpu.LabelOp {
		lh, ok := a.CurCPU.Backend.(cpu.LabelOpHandler)
		if !ok {
			a.Errorf("CPU %s does not support label-ops", a.CurCPU.Name)
			return
		}
		if _, err := lh.DoCPULabelOp(a, entry.Type, entry.Parm, a.curLabel); err != nil {
			a.Errorf("%s", err)
		}
		return
	}
	if a.curLabel != "" {
		a.defineLocLabel(a.curLabel)
	}
	if _, err := a.CurCPU.Backend.DoCPUOpcode(a, entry.Type, entry.Parm); err != nil {
		a.Errorf("%s", err)
	}
}

// defineLocLabel defines name as a symbol equal to the current location
// counter, and — for a non-temporary name — updates lastLabl per
// spec.md §4.3.
func (a *Assembler) defineLocLabel(name string) {
	if err := a.Symtab.Def(name, a.Segs.Loc(), false, false, a.curPos); err != nil {
		a.reportDefError(err)
	}
	if name != "" && name[0] != '.' && name[0] != '@' {
		a.Symtab.SetLastLabel(name)
	}
}

func (a *Assembler) reportDefError(err error) {
	var de *symtab.DefError
	if errAs(err, &de) {
		if de.Kind == symtab.PhaseError {
			a.Errorf("Phase error: %s", err)
		} else {
			a.Errorf("%s", err)
		}
		return
	}
	a.Errorf("%s", err)
}

// errAs is a tiny errors.As shim kept local to avoid importing errors for
// one call site; symtab.DefError is always returned directly, never
// wrapped, so a type assertion suffices.
func errAs(err error, target **symtab.DefError) bool {
	de, ok := err.(*symtab.DefError)
	if ok {
		*target = de
	}
	return ok
}

// flushLine writes the line's emitted bytes (if any) to the object sink
// and, in pass 2, to the listing sink.
func (a *Assembler) flushLine(source string) {
	bytes := a.embuf.Bytes()
	addr := a.Segs.Cod()
	if len(bytes) > 0 {
		if a.Segs.Generates() && a.Obj != nil {
			a.Obj.WriteCode(addr, bytes)
		}
		a.Segs.Advance(uint32(len(bytes)))
	}
	if a.pass == 2 && a.List != nil && a.flags.List {
		ds := a.Diags.AtLine(a.curPos, a.flags.ListPass1)
		spaceBefore := a.embuf.SpaceBefore()
		if a.embuf.InstrLen() < 0 || a.CurCPU == nil || a.CurCPU.ListWidth != 24 {
			spaceBefore = nil
		}
		a.List.Line(a.curPos, addr, bytes, spaceBefore, source, ds)
	}
}

func (a *Assembler) invokeMacro(name string) {
	argsText := a.lx.Remaining()
	inv, err := a.Macros.Invoke(name, argsText, a.pass)
	if err != nil {
		a.Errorf("%s", err)
		return
	}
	if err := a.activeReader.EnterMacro(inv, a.curPos); err != nil {
		a.Errorf("%s", err)
	}
}
