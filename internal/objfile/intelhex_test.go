package objfile_test

import (
	"bytes"
	"testing"

	"github.com/crossasm/asmx/internal/objfile"
	"github.com/stretchr/testify/assert"
)

func TestIntelHex_DataAndEOF(t *testing.T) {
	var buf bytes.Buffer
	h := objfile.NewIntelHex(&buf)

	h.WriteCode(0x2000, []byte{0xA9, 0x42})
	assert.NoError(t, h.Finish())

	want := ":02200000A942F3\n:00000001FF\n"
	assert.Equal(t, want, buf.String())
}

func TestIntelHex_TransferAddress(t *testing.T) {
	var buf bytes.Buffer
	h := objfile.NewIntelHex(&buf)

	h.WriteCode(0x1000, []byte{0x01})
	h.SetTransferAddress(0x1000)
	assert.NoError(t, h.Finish())

	assert.Contains(t, buf.String(), ":00100001")
}

func TestIntelHex_SplitsRecordsAt16Bytes(t *testing.T) {
	var buf bytes.Buffer
	h := objfile.NewIntelHex(&buf)

	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	h.WriteCode(0, data)
	assert.NoError(t, h.Finish())

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	// 20 bytes split at 16 -> two data records, plus the EOF record.
	assert.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), ":10000000")
	assert.Contains(t, string(lines[1]), ":0400")
}

func TestIntelHex_ExtendedAddress(t *testing.T) {
	var buf bytes.Buffer
	h := objfile.NewIntelHex(&buf)

	h.WriteCode(0x1FFFE, []byte{0x01, 0x02, 0x03, 0x04})
	assert.NoError(t, h.Finish())

	assert.Contains(t, buf.String(), ":02000004")
}
