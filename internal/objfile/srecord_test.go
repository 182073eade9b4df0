package objfile_test

import (
	"bytes"
	"testing"

	"github.com/crossasm/asmx/internal/objfile"
	"github.com/stretchr/testify/assert"
)

func TestSRecord_S19DataAndXfer(t *testing.T) {
	var buf bytes.Buffer
	s := objfile.NewSRecord(&buf, objfile.SRec16)

	s.WriteCode(0x2000, []byte{0xA9, 0x42})
	s.SetTransferAddress(0x2000)
	assert.NoError(t, s.Finish())

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Equal(t, "S1052000A942EF", string(lines[0]))
	assert.True(t, bytes.HasPrefix(lines[1], []byte("S9032000")))
}

func TestSRecord_AddressWidthVariesByType(t *testing.T) {
	tests := []struct {
		name   string
		typ    objfile.SRecordType
		prefix string
	}{
		{"S19", objfile.SRec16, "S1"},
		{"S28", objfile.SRec24, "S2"},
		{"S37", objfile.SRec32, "S3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := objfile.NewSRecord(&buf, tt.typ)
			s.WriteCode(0x100, []byte{0x01, 0x02})
			assert.NoError(t, s.Finish())
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(tt.prefix)))
		})
	}
}
