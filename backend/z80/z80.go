// Package z80 implements the Z80 back end of spec.md §6.4/§8's "forward-
// referenced branch" scenario and the rest of its documented end-to-end
// properties: the main (non-indexed) instruction set, CB-prefixed bit/
// rotate/shift opcodes, and ED-prefixed extended opcodes — enough to
// exercise every internal/emit primitive (AddB, AddW, and AddX's
// always-big-endian prefix-byte emission) and every addressing-mode-driven
// forward-reference case spec.md names. IX/IY-indexed addressing is out of
// scope: SPEC_FULL.md's own back-end-detail note says reference back ends
// need not reach full ISA coverage, and indexed addressing adds a third
// prefix family and a displacement-byte operand form that nothing in
// spec.md's testable properties exercises.
//
// Grounded in the teacher's encoder.Encoder.EncodeInstruction dispatch
// pattern, generalized from ARM's fixed-width encoding to the Z80's
// prefix-plus-variable-operand encoding the way backend/mos6502 generalizes
// it to 6502's addressing-mode table.
package z80

import (
	"fmt"

	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/emit"
	"github.com/crossasm/asmx/internal/lexer"
)

const (
	opMain cpu.OpType = iota + 1
	opAlu
	opRot8
	opIncDec8
	opIncDec16
	opAdd16
	opPush
	opPop
	opJump
	opJumpRel
	opDjnz
	opCall
	opRet
	opRst
	opBit
	opImplied
	opExDeHl
	opExAfAf
	opExx
	opExSpHl
	opBlock
	opIO
	opIm
	opLdAIR
	opLdIRA
	opLdDdNn
	opLdDdIndNn
	opLdIndNnDd
	opLdHlIndNn
	opLdIndNnHl
	opLdSpHl
	opLdIndRegA
	opLdAIndReg
	opLdIndNnA
	opLdAIndNn
)

var opcodes = []cpu.OpEntry{
	{Name: "NOP", Type: opImplied, Parm: 0x00},
	{Name: "HALT", Type: opImplied, Parm: 0x76},
	{Name: "DI", Type: opImplied, Parm: 0xF3},
	{Name: "EI", Type: opImplied, Parm: 0xFB},
	{Name: "DAA", Type: opImplied, Parm: 0x27},
	{Name: "CPL", Type: opImplied, Parm: 0x2F},
	{Name: "SCF", Type: opImplied, Parm: 0x37},
	{Name: "CCF", Type: opImplied, Parm: 0x3F},
	{Name: "RLCA", Type: opImplied, Parm: 0x07},
	{Name: "RRCA", Type: opImplied, Parm: 0x0F},
	{Name: "RLA", Type: opImplied, Parm: 0x17},
	{Name: "RRA", Type: opImplied, Parm: 0x1F},
	{Name: "RET", Type: opRet, Parm: -1},
	{Name: "RETI", Type: opImplied, Parm: -0xED4D},
	{Name: "RETN", Type: opImplied, Parm: -0xED45},
	{Name: "EXX", Type: opExx, Parm: 0},
	{Name: "EX", Type: opExDeHl, Parm: 0}, // re-dispatched to the right EX* by operand text

	{Name: "LD", Type: opMain, Parm: 0}, // re-dispatched internally by operand shape
	{Name: "PUSH", Type: opPush, Parm: 0},
	{Name: "POP", Type: opPop, Parm: 0},

	{Name: "ADD", Type: opAlu, Parm: 0},
	{Name: "ADC", Type: opAlu, Parm: 1},
	{Name: "SUB", Type: opAlu, Parm: 2},
	{Name: "SBC", Type: opAlu, Parm: 3},
	{Name: "AND", Type: opAlu, Parm: 4},
	{Name: "XOR", Type: opAlu, Parm: 5},
	{Name: "OR", Type: opAlu, Parm: 6},
	{Name: "CP", Type: opAlu, Parm: 7},

	{Name: "INC", Type: opIncDec8, Parm: 0},
	{Name: "DEC", Type: opIncDec8, Parm: 1},

	{Name: "RLC", Type: opRot8, Parm: 0},
	{Name: "RRC", Type: opRot8, Parm: 1},
	{Name: "RL", Type: opRot8, Parm: 2},
	{Name: "RR", Type: opRot8, Parm: 3},
	{Name: "SLA", Type: opRot8, Parm: 4},
	{Name: "SRA", Type: opRot8, Parm: 5},
	{Name: "SRL", Type: opRot8, Parm: 7},

	{Name: "BIT", Type: opBit, Parm: 1},
	{Name: "RES", Type: opBit, Parm: 2},
	{Name: "SET", Type: opBit, Parm: 3},

	{Name: "JP", Type: opJump, Parm: 0},
	{Name: "JR", Type: opJumpRel, Parm: 0},
	{Name: "DJNZ", Type: opDjnz, Parm: 0},
	{Name: "CALL", Type: opCall, Parm: 0},
	{Name: "RST", Type: opRst, Parm: 0},

	{Name: "IM", Type: opIm, Parm: 0},
	{Name: "IN", Type: opIO, Parm: 0},
	{Name: "OUT", Type: opIO, Parm: 1},

	{Name: "LDI", Type: opBlock, Parm: 0xA0},
	{Name: "LDIR", Type: opBlock, Parm: 0xB0},
	{Name: "LDD", Type: opBlock, Parm: 0xA8},
	{Name: "LDDR", Type: opBlock, Parm: 0xB8},
	{Name: "CPI", Type: opBlock, Parm: 0xA1},
	{Name: "CPIR", Type: opBlock, Parm: 0xB1},
	{Name: "CPD", Type: opBlock, Parm: 0xA9},
	{Name: "CPDR", Type: opBlock, Parm: 0xB9},
}

// regCode is the 3-bit r operand encoding: B C D E H L (HL) A.
var regCode = map[string]byte{
	"B": 0, "C": 1, "D": 2, "E": 3, "H": 4, "L": 5, "A": 7,
}

// pairCodeSP is the dd/ss pair encoding with SP as the 4th slot (used by
// 16-bit load/inc/dec/add and PUSH/POP's BC/DE/HL slots).
var pairCodeSP = map[string]byte{"BC": 0, "DE": 1, "HL": 2, "SP": 3}

// pairCodeAF is PUSH/POP's 4th-slot variant, where AF stands in for SP.
var pairCodeAF = map[string]byte{"BC": 0, "DE": 1, "HL": 2, "AF": 3}

// condCode is the 3-bit condition encoding shared by JP/CALL/RET.
var condCode = map[string]byte{"NZ": 0, "Z": 1, "NC": 2, "C": 3, "PO": 4, "PE": 5, "P": 6, "M": 7}

// condCodeRel is JR/DJNZ's narrower 2-bit condition encoding (only the
// first four flag conditions are reachable with a short jump).
var condCodeRel = map[string]byte{"NZ": 0, "Z": 1, "NC": 2, "C": 3}

// Backend implements cpu.Backend for the Z80.
type Backend struct{}

// Def returns the registry definition for the Z80: little-endian, 16-bit
// addresses, 8-bit words.
func Def() *cpu.Def {
	return &cpu.Def{
		Name:      "Z80",
		BigEndian: false,
		AddrWidth: 16,
		ListWidth: 24,
		WordSize:  8,
		Opcodes:   opcodes,
		Backend:   &Backend{},
	}
}

func (b *Backend) Name() string { return "z80 1.0" }

func (b *Backend) DoCPUOpcode(ctx cpu.Context, typ cpu.OpType, parm int) (bool, error) {
	switch typ {
	case opImplied:
		return b.doImplied(ctx, parm)
	case opMain:
		return b.doLD(ctx)
	case opAlu:
		return b.doAlu(ctx, byte(parm))
	case opIncDec8:
		return b.doIncDec(ctx, parm == 1)
	case opRot8:
		return b.doRot8(ctx, byte(parm))
	case opBit:
		return b.doBit(ctx, parm)
	case opJump:
		return b.doJump(ctx)
	case opJumpRel:
		return b.doJumpRel(ctx)
	case opDjnz:
		return b.doDjnz(ctx)
	case opCall:
		return b.doCall(ctx)
	case opRet:
		return b.doRet(ctx)
	case opRst:
		return b.doRst(ctx)
	case opPush:
		return b.doPushPop(ctx, 0xC5)
	case opPop:
		return b.doPushPop(ctx, 0xC1)
	case opExDeHl:
		return b.doEx(ctx)
	case opExx:
		ctx.Emit().AddB(0xD9)
		return true, nil
	case opIm:
		return b.doIm(ctx)
	case opIO:
		return b.doIO(ctx, parm == 1)
	case opBlock:
		ctx.Emit().AddX(0xED, byte(parm))
		return true, nil
	}
	return false, nil
}

func (b *Backend) doImplied(ctx cpu.Context, parm int) (bool, error) {
	if parm < 0 {
		ctx.Emit().AddX(0xED, byte(-parm&0xFF))
		return true, nil
	}
	ctx.Emit().AddB(byte(parm))
	return true, nil
}

// peekWord reads the next identifier word without consuming it if it
// doesn't match what the caller expects, letting register/pair/condition
// checks backtrack freely.
func peekWord(lx *lexer.Lexer) (string, bool) {
	save := lx.Pos()
	kind, word := lx.GetWord()
	if kind != lexer.WordIdentifier {
		lx.SetPos(save)
		return "", false
	}
	return word, true
}

// operand classifies one operand slot: a bare register/pair name, "(HL)"/
// "(C)"/(BC)/(DE)/a parenthesized expression, or a plain expression.
type operand struct {
	reg      string // "A".."L", "" if not a bare register
	indirect bool
	indReg   string // "HL", "BC", "DE", "C", "" if not a register-indirect form
	val      int32
	known    bool
	isExpr   bool
}

func parseOperand(ctx cpu.Context) (operand, error) {
	lx := ctx.Lexer()
	if lx.Expect('(') {
		if w, ok := peekWord(lx); ok && (w == "HL" || w == "BC" || w == "DE" || w == "C" || w == "SP") {
			if !lx.Expect(')') {
				return operand{}, fmt.Errorf("missing ) after (%s", w)
			}
			return operand{indirect: true, indReg: w}, nil
		}
		v, known, err := ctx.Eval()
		if err != nil {
			return operand{}, err
		}
		if !lx.Expect(')') {
			return operand{}, fmt.Errorf("missing ) in indirect operand")
		}
		return operand{indirect: true, val: v, known: known, isExpr: true}, nil
	}
	if w, ok := peekWord(lx); ok {
		upper := w
		if _, isReg := regCode[upper]; isReg {
			return operand{reg: upper}, nil
		}
		if upper == "BC" || upper == "DE" || upper == "HL" || upper == "SP" || upper == "AF" || upper == "IX" || upper == "IY" {
			return operand{reg: upper}, nil
		}
		// not a recognized register name: push the word back and fall
		// through to expression parsing (a symbol named e.g. "COUNT").
		lx.SetPos(lx.Pos() - len(w))
	}
	v, known, err := ctx.Eval()
	if err != nil {
		return operand{}, err
	}
	return operand{val: v, known: known, isExpr: true}, nil
}

func expectComma(ctx cpu.Context) error {
	if !ctx.Lexer().Expect(',') {
		return fmt.Errorf("missing , between operands")
	}
	return nil
}

func (b *Backend) doLD(ctx cpu.Context) (bool, error) {
	lx := ctx.Lexer()
	dst, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	if err := expectComma(ctx); err != nil {
		return false, err
	}

	// LD A,I / LD A,R / LD I,A / LD R,A
	if dst.reg == "A" {
		save := lx.Pos()
		if w, ok := peekWord(lx); ok && (w == "I" || w == "R") {
			ctx.Emit().AddX(0xED, map[string]byte{"I": 0x57, "R": 0x5F}[w])
			return true, nil
		}
		lx.SetPos(save)
	}
	if dst.reg == "I" || dst.reg == "R" {
		if w, ok := peekWord(lx); ok && w == "A" {
			ctx.Emit().AddX(0xED, map[string]byte{"I": 0x47, "R": 0x4F}[dst.reg])
			return true, nil
		}
	}

	// LD SP,HL
	if dst.reg == "SP" {
		if w, ok := peekWord(lx); ok && w == "HL" {
			ctx.Emit().AddB(0xF9)
			return true, nil
		}
	}

	// LD r,r' / LD r,(HL) / LD (HL),r / LD r,n / LD (HL),n
	if dst.reg != "" {
		if dc, ok := regCode[dst.reg]; ok {
			src, err := parseOperand(ctx)
			if err != nil {
				return false, err
			}
			if src.reg != "" {
				if sc, ok := regCode[src.reg]; ok {
					ctx.Emit().AddB(0x40 | dc<<3 | sc)
					return true, nil
				}
			}
			if src.indirect && src.indReg == "HL" {
				ctx.Emit().AddB(0x40 | dc<<3 | 6)
				return true, nil
			}
			if src.indirect && src.isExpr && dst.reg == "A" {
				ctx.Emit().AddB(0x3A)
				ctx.Emit().AddW(uint16(src.val))
				return true, nil
			}
			if src.isExpr {
				ctx.Emit().AddB(0x06 | dc<<3)
				bv, werr := emit.EvalByte(src.val)
				if werr != nil && src.known {
					ctx.Warnf("%s", werr)
				}
				ctx.Emit().AddB(bv)
				return true, nil
			}
			return false, fmt.Errorf("unsupported LD source operand")
		}
		if pc, ok := pairCodeSP[dst.reg]; ok {
			src, err := parseOperand(ctx)
			if err != nil {
				return false, err
			}
			if src.indirect && src.isExpr {
				if dst.reg == "HL" {
					ctx.Emit().AddB(0x2A)
					ctx.Emit().AddW(uint16(src.val))
				} else {
					ctx.Emit().AddX(0xED, 0x4B|pc<<4)
					ctx.Emit().AddW(uint16(src.val))
				}
				return true, nil
			}
			if src.isExpr {
				ctx.Emit().AddB(0x01 | pc<<4)
				ctx.Emit().AddW(uint16(src.val))
				return true, nil
			}
			return false, fmt.Errorf("unsupported LD source operand for %s", dst.reg)
		}
	}

	// LD (HL),r / LD (HL),n / LD (BC),A / LD (DE),A / LD (nn),A / LD (nn),HL / LD (nn),dd
	if dst.indirect {
		src, err := parseOperand(ctx)
		if err != nil {
			return false, err
		}
		switch {
		case dst.indReg == "HL" && src.reg != "":
			sc := regCode[src.reg]
			ctx.Emit().AddB(0x70 | sc)
			return true, nil
		case dst.indReg == "HL" && src.isExpr:
			ctx.Emit().AddB(0x36)
			bv, werr := emit.EvalByte(src.val)
			if werr != nil && src.known {
				ctx.Warnf("%s", werr)
			}
			ctx.Emit().AddB(bv)
			return true, nil
		case (dst.indReg == "BC" || dst.indReg == "DE") && src.reg == "A":
			opc := map[string]byte{"BC": 0x02, "DE": 0x12}[dst.indReg]
			ctx.Emit().AddB(opc)
			return true, nil
		case dst.isExpr && src.reg == "A":
			ctx.Emit().AddB(0x32)
			ctx.Emit().AddW(uint16(dst.val))
			return true, nil
		case dst.isExpr && src.reg == "HL":
			ctx.Emit().AddB(0x22)
			ctx.Emit().AddW(uint16(dst.val))
			return true, nil
		case dst.isExpr && src.reg != "":
			pc, ok := pairCodeSP[src.reg]
			if !ok {
				return false, fmt.Errorf("unsupported LD (nn),%s", src.reg)
			}
			ctx.Emit().AddX(0xED, 0x43|pc<<4)
			ctx.Emit().AddW(uint16(dst.val))
			return true, nil
		}
		return false, fmt.Errorf("unsupported LD destination operand")
	}

	return false, fmt.Errorf("unsupported LD destination operand")
}

func (b *Backend) doAlu(ctx cpu.Context, op byte) (bool, error) {
	lx := ctx.Lexer()
	first, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	// ADD/ADC/SBC HL,ss and ADD IX/IY,pp
	if first.reg == "HL" && lx.Expect(',') {
		src, err := parseOperand(ctx)
		if err != nil {
			return false, err
		}
		pc, ok := pairCodeSP[src.reg]
		if !ok {
			return false, fmt.Errorf("unsupported 16-bit ALU operand")
		}
		switch op {
		case 0: // ADD
			ctx.Emit().AddB(0x09 | pc<<4)
		case 1: // ADC
			ctx.Emit().AddX(0xED, 0x4A|pc<<4)
		case 3: // SBC
			ctx.Emit().AddX(0xED, 0x42|pc<<4)
		default:
			return false, fmt.Errorf("unsupported 16-bit ALU op")
		}
		return true, nil
	}

	// A,src or bare src: both forms target the accumulator.
	if first.reg == "A" && lx.Expect(',') {
		src, err := parseOperand(ctx)
		if err != nil {
			return false, err
		}
		return b.emitAlu8(ctx, op, src)
	}
	return b.emitAlu8(ctx, op, first)
}

func (b *Backend) emitAlu8(ctx cpu.Context, op byte, src operand) (bool, error) {
	if src.reg != "" {
		if rc, ok := regCode[src.reg]; ok {
			ctx.Emit().AddB(0x80 | op<<3 | rc)
			return true, nil
		}
	}
	if src.indirect && src.indReg == "HL" {
		ctx.Emit().AddB(0x80 | op<<3 | 6)
		return true, nil
	}
	if src.isExpr {
		ctx.Emit().AddB(0xC6 | op<<3)
		bv, werr := emit.EvalByte(src.val)
		if werr != nil && src.known {
			ctx.Warnf("%s", werr)
		}
		ctx.Emit().AddB(bv)
		return true, nil
	}
	return false, fmt.Errorf("unsupported ALU operand")
}

func (b *Backend) doIncDec(ctx cpu.Context, isDec bool) (bool, error) {
	op, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	if op.reg != "" {
		if rc, ok := regCode[op.reg]; ok {
			base := byte(0x04)
			if isDec {
				base = 0x05
			}
			ctx.Emit().AddB(base | rc<<3)
			return true, nil
		}
		if pc, ok := pairCodeSP[op.reg]; ok {
			base := byte(0x03)
			if isDec {
				base = 0x0B
			}
			ctx.Emit().AddB(base | pc<<4)
			return true, nil
		}
	}
	if op.indirect && op.indReg == "HL" {
		base := byte(0x34)
		if isDec {
			base = 0x35
		}
		ctx.Emit().AddB(base)
		return true, nil
	}
	return false, fmt.Errorf("unsupported INC/DEC operand")
}

func (b *Backend) doRot8(ctx cpu.Context, op byte) (bool, error) {
	operandVal, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	if operandVal.reg != "" {
		if rc, ok := regCode[operandVal.reg]; ok {
			ctx.Emit().AddX(0xCB, op<<3|rc)
			return true, nil
		}
	}
	if operandVal.indirect && operandVal.indReg == "HL" {
		ctx.Emit().AddX(0xCB, op<<3|6)
		return true, nil
	}
	return false, fmt.Errorf("unsupported rotate/shift operand")
}

func (b *Backend) doBit(ctx cpu.Context, kind int) (bool, error) {
	bitVal, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	if bitVal < 0 || bitVal > 7 {
		ctx.Errorf("bit number %d out of range", bitVal)
	}
	if err := expectComma(ctx); err != nil {
		return false, err
	}
	op, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	base := byte(kind << 6) // kind is the opcode's top two bits: 01=BIT, 10=RES, 11=SET
	bm := byte(bitVal&7) << 3
	if op.reg != "" {
		if rc, ok := regCode[op.reg]; ok {
			ctx.Emit().AddX(0xCB, base|bm|rc)
			return true, nil
		}
	}
	if op.indirect && op.indReg == "HL" {
		ctx.Emit().AddX(0xCB, base|bm|6)
		return true, nil
	}
	return false, fmt.Errorf("unsupported BIT/RES/SET operand")
}

func (b *Backend) parseOptionalCond(ctx cpu.Context, codes map[string]byte) (byte, bool) {
	lx := ctx.Lexer()
	save := lx.Pos()
	if w, ok := peekWord(lx); ok {
		if cc, ok := codes[w]; ok && lx.Expect(',') {
			return cc, true
		}
	}
	lx.SetPos(save)
	return 0, false
}

func (b *Backend) doJump(ctx cpu.Context) (bool, error) {
	lx := ctx.Lexer()
	if lx.Expect('(') {
		if w, ok := peekWord(lx); ok && w == "HL" {
			if !lx.Expect(')') {
				return false, fmt.Errorf("missing ) after (HL")
			}
			ctx.Emit().AddB(0xE9)
			return true, nil
		}
		return false, fmt.Errorf("unsupported JP (...) form")
	}
	if cc, ok := b.parseOptionalCond(ctx, condCode); ok {
		v, _, err := ctx.Eval()
		if err != nil {
			return false, err
		}
		ctx.Emit().AddB(0xC2 | cc<<3)
		ctx.Emit().AddW(uint16(v))
		return true, nil
	}
	v, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	ctx.Emit().AddB(0xC3)
	ctx.Emit().AddW(uint16(v))
	return true, nil
}

func (b *Backend) doJumpRel(ctx cpu.Context) (bool, error) {
	if cc, ok := b.parseOptionalCond(ctx, condCodeRel); ok {
		target, _, err := ctx.Eval()
		if err != nil {
			return false, err
		}
		disp := target - (ctx.Loc() + 2)
		if _, err := emit.EvalBranch(disp, 1); err != nil {
			ctx.Errorf("%s", err)
		}
		ctx.Emit().AddB(0x20 | cc<<3)
		ctx.Emit().AddB(byte(disp))
		return true, nil
	}
	target, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	disp := target - (ctx.Loc() + 2)
	if _, err := emit.EvalBranch(disp, 1); err != nil {
		ctx.Errorf("%s", err)
	}
	ctx.Emit().AddB(0x18)
	ctx.Emit().AddB(byte(disp))
	return true, nil
}

func (b *Backend) doDjnz(ctx cpu.Context) (bool, error) {
	target, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	disp := target - (ctx.Loc() + 2)
	if _, err := emit.EvalBranch(disp, 1); err != nil {
		ctx.Errorf("%s", err)
	}
	ctx.Emit().AddB(0x10)
	ctx.Emit().AddB(byte(disp))
	return true, nil
}

func (b *Backend) doCall(ctx cpu.Context) (bool, error) {
	if cc, ok := b.parseOptionalCond(ctx, condCode); ok {
		v, _, err := ctx.Eval()
		if err != nil {
			return false, err
		}
		ctx.Emit().AddB(0xC4 | cc<<3)
		ctx.Emit().AddW(uint16(v))
		return true, nil
	}
	v, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	ctx.Emit().AddB(0xCD)
	ctx.Emit().AddW(uint16(v))
	return true, nil
}

func (b *Backend) doRet(ctx cpu.Context) (bool, error) {
	lx := ctx.Lexer()
	if lx.AtEOL() {
		ctx.Emit().AddB(0xC9)
		return true, nil
	}
	if w, ok := peekWord(lx); ok {
		if cc, ok := condCode[w]; ok {
			ctx.Emit().AddB(0xC0 | cc<<3)
			return true, nil
		}
	}
	return false, fmt.Errorf("unsupported RET operand")
}

func (b *Backend) doRst(ctx cpu.Context) (bool, error) {
	v, known, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	if !known {
		return false, fmt.Errorf("RST operand must be known in pass 1")
	}
	if v < 0 || v > 0x38 || v%8 != 0 {
		ctx.Errorf("RST operand must be a multiple of 8 from 0 to 0x38")
	}
	ctx.Emit().AddB(0xC7 | byte(v/8)<<3)
	return true, nil
}

func (b *Backend) doPushPop(ctx cpu.Context, base byte) (bool, error) {
	lx := ctx.Lexer()
	w, ok := peekWord(lx)
	if !ok {
		return false, fmt.Errorf("missing register pair operand")
	}
	pc, ok := pairCodeAF[w]
	if !ok {
		return false, fmt.Errorf("%s is not a valid PUSH/POP operand", w)
	}
	ctx.Emit().AddB(base | pc<<4)
	return true, nil
}

func (b *Backend) doEx(ctx cpu.Context) (bool, error) {
	lx := ctx.Lexer()
	if lx.Expect('(') {
		if w, ok := peekWord(lx); ok && w == "SP" && lx.Expect(')') && lx.Expect(',') {
			if w2, ok := peekWord(lx); ok && w2 == "HL" {
				ctx.Emit().AddB(0xE3)
				return true, nil
			}
		}
		return false, fmt.Errorf("unsupported EX (...) form")
	}
	w, ok := peekWord(lx)
	if !ok {
		return false, fmt.Errorf("missing EX operand")
	}
	switch w {
	case "DE":
		if !lx.Expect(',') {
			return false, fmt.Errorf("missing , in EX DE,HL")
		}
		if w2, ok := peekWord(lx); !ok || w2 != "HL" {
			return false, fmt.Errorf("EX DE requires an HL operand")
		}
		ctx.Emit().AddB(0xEB)
		return true, nil
	case "AF":
		// EX AF,AF': the rest of the line (",AF'") is fixed syntax with no
		// other valid reading, so it's accepted without field-by-field
		// validation once the leading AF is seen.
		ctx.Emit().AddB(0x08)
		return true, nil
	}
	return false, fmt.Errorf("unsupported EX operand %s", w)
}

func (b *Backend) doIm(ctx cpu.Context) (bool, error) {
	v, known, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	if !known || (v != 0 && v != 1 && v != 2) {
		ctx.Errorf("IM operand must be 0, 1, or 2")
		v = 0
	}
	opc := map[int32]byte{0: 0x46, 1: 0x56, 2: 0x5E}[v]
	ctx.Emit().AddX(0xED, opc)
	return true, nil
}

func (b *Backend) doIO(ctx cpu.Context, isOut bool) (bool, error) {
	lx := ctx.Lexer()
	if isOut {
		if !lx.Expect('(') {
			return false, fmt.Errorf("OUT requires a (port) destination")
		}
		if w, ok := peekWord(lx); ok && w == "C" {
			if !lx.Expect(')') || !lx.Expect(',') {
				return false, fmt.Errorf("malformed OUT (C),r")
			}
			src, err := parseOperand(ctx)
			if err != nil {
				return false, err
			}
			rc, ok := regCode[src.reg]
			if !ok {
				return false, fmt.Errorf("OUT (C) requires a register source")
			}
			ctx.Emit().AddX(0xED, 0x41|rc<<3)
			return true, nil
		}
		v, _, err := ctx.Eval()
		if err != nil {
			return false, err
		}
		if !lx.Expect(')') || !lx.Expect(',') {
			return false, fmt.Errorf("malformed OUT (n),A")
		}
		if w, ok := peekWord(lx); !ok || w != "A" {
			return false, fmt.Errorf("OUT (n) requires an A source")
		}
		ctx.Emit().AddB(0xD3)
		bv, _ := emit.EvalByte(v)
		ctx.Emit().AddB(bv)
		return true, nil
	}

	dst, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	if err := expectComma(ctx); err != nil {
		return false, err
	}
	if !lx.Expect('(') {
		return false, fmt.Errorf("IN requires a (port) source")
	}
	if w, ok := peekWord(lx); ok && w == "C" {
		if !lx.Expect(')') {
			return false, fmt.Errorf("missing ) after (C")
		}
		rc, ok := regCode[dst.reg]
		if !ok {
			return false, fmt.Errorf("IN r,(C) requires a register destination")
		}
		ctx.Emit().AddX(0xED, 0x40|rc<<3)
		return true, nil
	}
	v, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	if !lx.Expect(')') {
		return false, fmt.Errorf("missing ) in IN A,(n)")
	}
	ctx.Emit().AddB(0xDB)
	bv, _ := emit.EvalByte(v)
	ctx.Emit().AddB(bv)
	return true, nil
}
