// Package mos6502 implements the MOS 6502 back end of spec.md §6.4/§8's
// "simple 6502 sequence" scenario: the official instruction set over
// immediate, zero-page, absolute, indexed, and (indirect) addressing
// modes, plus relative branches.
//
// Grounded in the teacher's encoder.Encoder.EncodeInstruction dispatch
// pattern (decode operand syntax, look up the opcode byte for the
// resolved addressing mode, emit), adapted from ARM's fixed 32-bit
// instruction width to the 6502's variable-width opcode-plus-operand
// encoding. There is no 6502 analog anywhere in the teacher; the
// instruction table itself is the well-documented MOS 6502 opcode map.
package mos6502

import (
	"fmt"

	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/emit"
	"github.com/crossasm/asmx/internal/lexer"
)

// addrMode is the addressing mode an operand parses to, before it is
// resolved against a specific instruction's supported modes.
type addrMode int

const (
	modeImplied addrMode = iota
	modeAcc
	modeImm
	modeZP // only ever produced by resolution, never by parsing
	modeZPX
	modeZPY
	modeAbs
	modeAbsX
	modeAbsY
	modeInd
	modeIndX
	modeIndY
)

type modeSet map[addrMode]byte

type instrEntry struct {
	name  string
	modes modeSet
}

var instrTable = []instrEntry{
	{"LDA", modeSet{modeImm: 0xA9, modeZP: 0xA5, modeZPX: 0xB5, modeAbs: 0xAD, modeAbsX: 0xBD, modeAbsY: 0xB9, modeIndX: 0xA1, modeIndY: 0xB1}},
	{"LDX", modeSet{modeImm: 0xA2, modeZP: 0xA6, modeZPY: 0xB6, modeAbs: 0xAE, modeAbsY: 0xBE}},
	{"LDY", modeSet{modeImm: 0xA0, modeZP: 0xA4, modeZPX: 0xB4, modeAbs: 0xAC, modeAbsX: 0xBC}},
	{"STA", modeSet{modeZP: 0x85, modeZPX: 0x95, modeAbs: 0x8D, modeAbsX: 0x9D, modeAbsY: 0x99, modeIndX: 0x81, modeIndY: 0x91}},
	{"STX", modeSet{modeZP: 0x86, modeZPY: 0x96, modeAbs: 0x8E}},
	{"STY", modeSet{modeZP: 0x84, modeZPX: 0x94, modeAbs: 0x8C}},
	{"ADC", modeSet{modeImm: 0x69, modeZP: 0x65, modeZPX: 0x75, modeAbs: 0x6D, modeAbsX: 0x7D, modeAbsY: 0x79, modeIndX: 0x61, modeIndY: 0x71}},
	{"SBC", modeSet{modeImm: 0xE9, modeZP: 0xE5, modeZPX: 0xF5, modeAbs: 0xED, modeAbsX: 0xFD, modeAbsY: 0xF9, modeIndX: 0xE1, modeIndY: 0xF1}},
	{"AND", modeSet{modeImm: 0x29, modeZP: 0x25, modeZPX: 0x35, modeAbs: 0x2D, modeAbsX: 0x3D, modeAbsY: 0x39, modeIndX: 0x21, modeIndY: 0x31}},
	{"ORA", modeSet{modeImm: 0x09, modeZP: 0x05, modeZPX: 0x15, modeAbs: 0x0D, modeAbsX: 0x1D, modeAbsY: 0x19, modeIndX: 0x01, modeIndY: 0x11}},
	{"EOR", modeSet{modeImm: 0x49, modeZP: 0x45, modeZPX: 0x55, modeAbs: 0x4D, modeAbsX: 0x5D, modeAbsY: 0x59, modeIndX: 0x41, modeIndY: 0x51}},
	{"CMP", modeSet{modeImm: 0xC9, modeZP: 0xC5, modeZPX: 0xD5, modeAbs: 0xCD, modeAbsX: 0xDD, modeAbsY: 0xD9, modeIndX: 0xC1, modeIndY: 0xD1}},
	{"CPX", modeSet{modeImm: 0xE0, modeZP: 0xE4, modeAbs: 0xEC}},
	{"CPY", modeSet{modeImm: 0xC0, modeZP: 0xC4, modeAbs: 0xCC}},
	{"BIT", modeSet{modeZP: 0x24, modeAbs: 0x2C}},
	{"INC", modeSet{modeZP: 0xE6, modeZPX: 0xF6, modeAbs: 0xEE, modeAbsX: 0xFE}},
	{"DEC", modeSet{modeZP: 0xC6, modeZPX: 0xD6, modeAbs: 0xCE, modeAbsX: 0xDE}},
	{"ASL", modeSet{modeAcc: 0x0A, modeImplied: 0x0A, modeZP: 0x06, modeZPX: 0x16, modeAbs: 0x0E, modeAbsX: 0x1E}},
	{"LSR", modeSet{modeAcc: 0x4A, modeImplied: 0x4A, modeZP: 0x46, modeZPX: 0x56, modeAbs: 0x4E, modeAbsX: 0x5E}},
	{"ROL", modeSet{modeAcc: 0x2A, modeImplied: 0x2A, modeZP: 0x26, modeZPX: 0x36, modeAbs: 0x2E, modeAbsX: 0x3E}},
	{"ROR", modeSet{modeAcc: 0x6A, modeImplied: 0x6A, modeZP: 0x66, modeZPX: 0x76, modeAbs: 0x6E, modeAbsX: 0x7E}},
	{"JMP", modeSet{modeAbs: 0x4C, modeInd: 0x6C}},
	{"JSR", modeSet{modeAbs: 0x20}},
}

// impliedTable holds zero-operand instructions: opcode is the whole
// encoding, no operand bytes follow.
var impliedTable = map[string]byte{
	"BRK": 0x00, "RTI": 0x40, "RTS": 0x60, "NOP": 0xEA,
	"INX": 0xE8, "INY": 0xC8, "DEX": 0xCA, "DEY": 0x88,
	"TAX": 0xAA, "TXA": 0x8A, "TAY": 0xA8, "TYA": 0x98,
	"TSX": 0xBA, "TXS": 0x9A, "PHA": 0x48, "PLA": 0x68,
	"PHP": 0x08, "PLP": 0x28, "CLC": 0x18, "SEC": 0x38,
	"CLI": 0x58, "SEI": 0x78, "CLD": 0xD8, "SED": 0xF8,
	"CLV": 0xB8,
}

// branchTable holds the relative-branch instructions: opcode followed by
// a signed 8-bit displacement from the byte after the instruction.
var branchTable = map[string]byte{
	"BPL": 0x10, "BMI": 0x30, "BVC": 0x50, "BVS": 0x70,
	"BCC": 0x90, "BCS": 0xB0, "BNE": 0xD0, "BEQ": 0xF0,
}

const (
	opInstr cpu.OpType = iota + 1
	opImplied
	opBranch
)

// Backend implements cpu.Backend for the 6502.
type Backend struct{}

// Def returns the registry definition for the 6502: little-endian,
// 16-bit addresses, a default 16-column listing, 8-bit words.
func Def() *cpu.Def {
	b := &Backend{}
	var opcodes []cpu.OpEntry
	for i, it := range instrTable {
		opcodes = append(opcodes, cpu.OpEntry{Name: it.name, Type: opInstr, Parm: i})
	}
	for name, op := range impliedTable {
		opcodes = append(opcodes, cpu.OpEntry{Name: name, Type: opImplied, Parm: int(op)})
	}
	for name, op := range branchTable {
		opcodes = append(opcodes, cpu.OpEntry{Name: name, Type: opBranch, Parm: int(op)})
	}
	return &cpu.Def{
		Name:      "6502",
		BigEndian: false,
		AddrWidth: 16,
		ListWidth: 16,
		WordSize:  8,
		Opcodes:   opcodes,
		Backend:   b,
	}
}

func (b *Backend) Name() string { return "mos6502 1.0" }

func (b *Backend) DoCPUOpcode(ctx cpu.Context, typ cpu.OpType, parm int) (bool, error) {
	switch typ {
	case opImplied:
		ctx.Emit().AddB(byte(parm))
		return true, nil
	case opBranch:
		return b.doBranch(ctx, byte(parm))
	case opInstr:
		return b.doInstr(ctx, instrTable[parm])
	}
	return false, nil
}

func (b *Backend) doBranch(ctx cpu.Context, opcode byte) (bool, error) {
	target, _, err := ctx.Eval()
	if err != nil {
		return false, err
	}
	disp := target - (ctx.Loc() + 2)
	if _, err := emit.EvalBranch(disp, 1); err != nil {
		ctx.Errorf("%s", err)
	}
	ctx.Emit().AddB(opcode)
	ctx.Emit().AddB(byte(disp))
	return true, nil
}

type resolved struct {
	opcode byte
	width  int
}

func (b *Backend) doInstr(ctx cpu.Context, it instrEntry) (bool, error) {
	mode, val, known, err := parseOperand(ctx)
	if err != nil {
		return false, err
	}
	r, ok := resolveMode(it.modes, mode, val, known)
	if !ok {
		return false, fmt.Errorf("illegal addressing mode for %s", it.name)
	}
	ctx.Emit().AddB(r.opcode)
	switch r.width {
	case 1:
		b, err := emit.EvalByte(val)
		if err != nil && known {
			ctx.Warnf("%s", err)
		}
		ctx.Emit().AddB(b)
	case 2:
		ctx.Emit().AddW(uint16(val))
	}
	return true, nil
}

// fitsZP reports whether a known operand value fits the zero page.
func fitsZP(val int32, known bool) bool {
	return known && val >= 0 && val <= 0xFF
}

// resolveMode maps a parsed syntactic addressing mode to the entry's
// opcode, preferring the zero-page form of an indexed/absolute operand
// whenever the value is known to fit in one byte (spec.md §7's forward
// reference is resolved conservatively to the wider form when not yet
// known, matching the real assembler's pass-1/pass-2 phase-error check).
func resolveMode(modes modeSet, mode addrMode, val int32, known bool) (resolved, bool) {
	switch mode {
	case modeImm:
		if op, ok := modes[modeImm]; ok {
			return resolved{op, 1}, true
		}
	case modeAcc:
		if op, ok := modes[modeAcc]; ok {
			return resolved{op, 0}, true
		}
		if op, ok := modes[modeImplied]; ok {
			return resolved{op, 0}, true
		}
	case modeImplied:
		if op, ok := modes[modeImplied]; ok {
			return resolved{op, 0}, true
		}
	case modeIndX:
		if op, ok := modes[modeIndX]; ok {
			return resolved{op, 1}, true
		}
	case modeIndY:
		if op, ok := modes[modeIndY]; ok {
			return resolved{op, 1}, true
		}
	case modeInd:
		if op, ok := modes[modeInd]; ok {
			return resolved{op, 2}, true
		}
	case modeAbs:
		if fitsZP(val, known) {
			if op, ok := modes[modeZP]; ok {
				return resolved{op, 1}, true
			}
		}
		if op, ok := modes[modeAbs]; ok {
			return resolved{op, 2}, true
		}
		if op, ok := modes[modeZP]; ok {
			return resolved{op, 1}, true
		}
	case modeAbsX:
		if fitsZP(val, known) {
			if op, ok := modes[modeZPX]; ok {
				return resolved{op, 1}, true
			}
		}
		if op, ok := modes[modeAbsX]; ok {
			return resolved{op, 2}, true
		}
		if op, ok := modes[modeZPX]; ok {
			return resolved{op, 1}, true
		}
	case modeAbsY:
		if fitsZP(val, known) {
			if op, ok := modes[modeZPY]; ok {
				return resolved{op, 1}, true
			}
		}
		if op, ok := modes[modeAbsY]; ok {
			return resolved{op, 2}, true
		}
		if op, ok := modes[modeZPY]; ok {
			return resolved{op, 1}, true
		}
	}
	return resolved{}, false
}

// parseOperand reads the 6502 operand syntax at the lexer's cursor:
// `#expr` (immediate), `(expr,X)`/`(expr),Y`/`(expr)` (the indirect
// forms), a bare `A` (accumulator shorthand), `expr,X`/`expr,Y` (indexed),
// a bare expr (absolute/zero-page, disambiguated later by value), or
// nothing at all (implied).
func parseOperand(ctx cpu.Context) (addrMode, int32, bool, error) {
	lx := ctx.Lexer()
	if lx.AtEOL() {
		return modeImplied, 0, true, nil
	}

	save := lx.Pos()
	if kind, word := lx.GetWord(); kind == lexer.WordIdentifier && word == "A" && lx.AtEOL() {
		return modeAcc, 0, true, nil
	}
	lx.SetPos(save)

	if lx.Expect('#') {
		v, known, err := ctx.Eval()
		return modeImm, v, known, err
	}

	if lx.Expect('(') {
		v, known, err := ctx.Eval()
		if err != nil {
			return 0, 0, false, err
		}
		if lx.Expect(',') {
			if kind, word := lx.GetWord(); kind != lexer.WordIdentifier || word != "X" {
				return 0, 0, false, fmt.Errorf("expected X in indexed indirect operand")
			}
			if !lx.Expect(')') {
				return 0, 0, false, fmt.Errorf("missing ) in indirect operand")
			}
			return modeIndX, v, known, nil
		}
		if !lx.Expect(')') {
			return 0, 0, false, fmt.Errorf("missing ) in indirect operand")
		}
		if lx.Expect(',') {
			if kind, word := lx.GetWord(); kind != lexer.WordIdentifier || word != "Y" {
				return 0, 0, false, fmt.Errorf("expected Y in indirect indexed operand")
			}
			return modeIndY, v, known, nil
		}
		return modeInd, v, known, nil
	}

	v, known, err := ctx.Eval()
	if err != nil {
		return 0, 0, false, err
	}
	if lx.Expect(',') {
		kind, word := lx.GetWord()
		switch {
		case kind == lexer.WordIdentifier && word == "X":
			return modeAbsX, v, known, nil
		case kind == lexer.WordIdentifier && word == "Y":
			return modeAbsY, v, known, nil
		}
		return 0, 0, false, fmt.Errorf("expected X or Y index register")
	}
	return modeAbs, v, known, nil
}
