package mos6502_test

import (
	"testing"

	"github.com/crossasm/asmx/backend/mos6502"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/pass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFiles satisfies pass.FileSource with no INCLUDE/INCBIN support, which
// these tests never exercise.
type fakeFiles struct{}

func (fakeFiles) ReadFile(name string) ([]byte, error) { return nil, nil }

// fakeObj records WriteCode calls keyed by the address where each
// contiguous run of bytes starts, so a test can assert on the exact bytes
// emitted from a given origin. The driver writes one call per line.
type fakeObj struct {
	writes   map[uint32][]byte
	xfer     uint32
	hasXfer  bool
	addrBits int
}

func newFakeObj() *fakeObj { return &fakeObj{writes: map[uint32][]byte{}} }

func (f *fakeObj) WriteCode(addr uint32, data []byte) {
	for start, run := range f.writes {
		if start+uint32(len(run)) == addr {
			f.writes[start] = append(run, data...)
			return
		}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes[addr] = cp
}
func (f *fakeObj) SetCPUAddrWidth(bits int)     { f.addrBits = bits }
func (f *fakeObj) SetTransferAddress(addr uint32) { f.xfer = addr; f.hasXfer = true }
func (f *fakeObj) Finish() error                { return nil }

func newAssembler(obj *fakeObj) *pass.Assembler {
	reg := cpu.NewRegistry()
	reg.Register(mos6502.Def())
	return pass.New(reg, fakeFiles{}, obj, nil)
}

func TestEndToEnd_LdaStaRts(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU 6502\nORG $1000\nSTART LDA #$42\n STA $2000\n RTS\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got, ok := obj.writes[0x1000]
	require.True(t, ok, "expected bytes written at $1000")
	assert.Equal(t, []byte{0xA9, 0x42, 0x8D, 0x00, 0x20, 0x60}, got)
}

func TestEndToEnd_ZeroPageVsAbsolute(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU 6502\nORG 0\n LDA $10\n LDA $1000\n"
	require.NoError(t, a.Run("main.asm", src))

	got := obj.writes[0]
	assert.Equal(t, byte(0xA5), got[0], "zero-page form for $10")
	assert.Equal(t, byte(0x10), got[1])
	assert.Equal(t, byte(0xAD), got[2], "absolute form for $1000")
}

func TestEndToEnd_BranchForwardAndBack(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU 6502\nORG 0\n BNE SKIP\n NOP\nSKIP NOP\n BEQ SKIP\n"
	require.NoError(t, a.Run("main.asm", src))

	got := obj.writes[0]
	assert.Equal(t, []byte{0xD0, 0x01, 0xEA, 0xEA, 0xF0, 0xFD}, got)
}

func TestEndToEnd_BranchOutOfRangeIsError(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	var pad string
	for i := 0; i < 200; i++ {
		pad += " NOP\n"
	}
	src := "CPU 6502\nORG 0\n BEQ FAR\n" + pad + "FAR NOP\n"
	require.NoError(t, a.Run("main.asm", src))

	assert.True(t, a.Diags.HasErrors(), "expected a branch-out-of-range diagnostic")
}

func TestEndToEnd_IndirectAddressingModes(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU 6502\nORG 0\n LDA ($20,X)\n STA ($30),Y\n JMP ($4000)\n"
	require.NoError(t, a.Run("main.asm", src))

	got := obj.writes[0]
	assert.Equal(t, byte(0xA1), got[0])
	assert.Equal(t, byte(0x20), got[1])
	assert.Equal(t, byte(0x91), got[2])
	assert.Equal(t, byte(0x30), got[3])
	assert.Equal(t, byte(0x6C), got[4])
	assert.Equal(t, byte(0x00), got[5])
	assert.Equal(t, byte(0x40), got[6])
}

func TestEndToEnd_AccumulatorShorthand(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU 6502\nORG 0\n ASL A\n ASL\n"
	require.NoError(t, a.Run("main.asm", src))

	got := obj.writes[0]
	assert.Equal(t, []byte{0x0A, 0x0A}, got)
}
