package asmserver_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/asmserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_SimpleProgram(t *testing.T) {
	src := "CPU 6502\nORG 0\nSTART: LDA #$42\n STA $2000\n RTS\n"
	resp, err := asmserver.Assemble(asmserver.AssembleRequest{Source: src, Listing: true})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, 0, resp.ErrorCount)
	assert.Equal(t, []byte{0xA9, 0x42, 0x8D, 0x00, 0x20, 0x60}, resp.Object)
	assert.Equal(t, int64(0), resp.Symbols["START"])
	assert.NotEmpty(t, resp.Listing)
}

func TestAssemble_UndefinedSymbolReportsError(t *testing.T) {
	src := "CPU 6502\nORG 0\n JMP MISSING\n"
	resp, err := asmserver.Assemble(asmserver.AssembleRequest{Source: src})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Greater(t, resp.ErrorCount, 0)
}

func TestAssemble_UnknownFormatIsRejected(t *testing.T) {
	resp, err := asmserver.Assemble(asmserver.AssembleRequest{Source: "NOP\n", Format: "punchcard"})
	assert.Nil(t, resp)
	require.Error(t, err)
}

func TestAssemble_Z80Program(t *testing.T) {
	src := "CPU Z80\nORG 0\n LD A,$42\n HALT\n"
	resp, err := asmserver.Assemble(asmserver.AssembleRequest{Source: src})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, []byte{0x3E, 0x42, 0x76}, resp.Object)
}
