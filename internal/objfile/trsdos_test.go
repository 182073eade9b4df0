package objfile_test

import (
	"bytes"
	"testing"

	"github.com/crossasm/asmx/internal/objfile"
	"github.com/stretchr/testify/assert"
)

func TestTRSDOS_NameLoadAndTransfer(t *testing.T) {
	var buf bytes.Buffer
	c := objfile.NewTRSDOS(&buf, "test.bin", 256)

	c.WriteCode(0x5000, []byte{0x01, 0x02})
	c.SetTransferAddress(0x5000)
	assert.NoError(t, c.Finish())

	want := []byte{
		0x05, 0x06, 'T', 'E', 'S', 'T', ' ', ' ', // name record, truncated at '.'
		0x01, 0x04, 0x00, 0x50, 0x01, 0x02, // load record: 01 LL+2 AL AH data
		0x02, 0x02, 0x00, 0x50, // transfer record
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestTRSDOS_SplitsRecordsAtReclen(t *testing.T) {
	var buf bytes.Buffer
	c := objfile.NewTRSDOS(&buf, "x", 4)

	c.WriteCode(0, []byte{1, 2, 3, 4, 5, 6})
	assert.NoError(t, c.Finish())

	// header (8 bytes) + load record 1 (4+4 bytes) + load record 2 (4+2 bytes)
	assert.Equal(t, 8+8+6, buf.Len())
}
