package z80_test

import (
	"testing"

	"github.com/crossasm/asmx/backend/z80"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/pass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiles struct{}

func (fakeFiles) ReadFile(name string) ([]byte, error) { return nil, nil }

type fakeObj struct {
	writes map[uint32][]byte
}

func newFakeObj() *fakeObj { return &fakeObj{writes: map[uint32][]byte{}} }

// WriteCode appends to the run that ends at addr, so writes[origin] holds
// every byte emitted from that origin; the driver writes one call per line.
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
func (f *fakeObj) SetCPUAddrWidth(bits int)       {}
func (f *fakeObj) SetTransferAddress(addr uint32) {}
func (f *fakeObj) Finish() error                  { return nil }

func newAssembler(obj *fakeObj) *pass.Assembler {
	reg := cpu.NewRegistry()
	reg.Register(z80.Def())
	return pass.New(reg, fakeFiles{}, obj, nil)
}

func TestEndToEnd_ForwardBranch(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU Z80\nORG 0\n JR L1\n NOP\nL1: HALT\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got := obj.writes[0]
	assert.Equal(t, []byte{0x18, 0x01, 0x00, 0x76}, got)
}

func TestEndToEnd_LoadAndArithmetic(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU Z80\nORG 0\n LD A,$42\n LD B,A\n ADD A,B\n LD HL,$1234\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got := obj.writes[0]
	assert.Equal(t, []byte{0x3E, 0x42, 0x47, 0x80, 0x21, 0x34, 0x12}, got)
}

func TestEndToEnd_PrefixedOpcodes(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU Z80\nORG 0\n BIT 7,A\n SET 0,B\n RLC C\n LDIR\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got := obj.writes[0]
	assert.Equal(t, []byte{0xCB, 0x7F, 0xCB, 0xC0, 0xCB, 0x01, 0xED, 0xB0}, got)
}

func TestEndToEnd_CallReturnAndStack(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU Z80\nORG 0\n CALL $2000\n PUSH BC\n POP HL\n RET\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got := obj.writes[0]
	assert.Equal(t, []byte{0xCD, 0x00, 0x20, 0xC5, 0xE1, 0xC9}, got)
}

func TestEndToEnd_ConditionalJumpAndDjnz(t *testing.T) {
	obj := newFakeObj()
	a := newAssembler(obj)

	src := "CPU Z80\nORG 0\n JP NZ,$3000\n DJNZ BACK\nBACK NOP\n"
	require.NoError(t, a.Run("main.asm", src))
	assert.Empty(t, a.Diags.All())

	got := obj.writes[0]
	assert.Equal(t, []byte{0xC2, 0x00, 0x30, 0x10, 0x00, 0x00}, got)
}
