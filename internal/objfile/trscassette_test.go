package objfile_test

import (
	"bytes"
	"testing"

	"github.com/crossasm/asmx/internal/objfile"
	"github.com/stretchr/testify/assert"
)

func TestTRSCassette_HeaderDataAndTransfer(t *testing.T) {
	var buf bytes.Buffer
	c := objfile.NewTRSCassette(&buf, "go.asm", 256)

	c.WriteCode(0x6000, []byte{0x10, 0x20})
	c.SetTransferAddress(0x6000)
	assert.NoError(t, c.Finish())

	out := buf.Bytes()
	lead := out[:255]
	for _, b := range lead {
		assert.Equal(t, byte(0x00), b)
	}

	rest := out[255:]
	want := []byte{
		0xA5, 0x55, 'G', 'O', ' ', ' ', ' ', ' ', // sync + header, truncated at '.'
		0x3C, 0x02, 0x00, 0x60, 0x10, 0x20, 0x90, // data block: 3C LL AL AH data CC
		0x78, 0x00, 0x60, // transfer block
	}
	assert.Equal(t, want, rest)
}
