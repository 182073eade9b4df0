package objfile_test

import (
	"testing"

	"github.com/crossasm/asmx/internal/objfile"
	"github.com/stretchr/testify/assert"
)

// seekBuf adapts a bytes.Buffer into an io.WriteSeeker for Binary, which
// writes at arbitrary offsets rather than strictly appending.
type seekBuf struct {
	data []byte
	pos  int64
}

func (s *seekBuf) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	s.pos = offset
	return s.pos, nil
}

func TestBinary_BaseOffsetAndGapPadding(t *testing.T) {
	var buf seekBuf
	b := objfile.NewBinary(&buf, 0x1000, 0, false)

	b.WriteCode(0x1000, []byte{0x01, 0x02})
	b.WriteCode(0x1004, []byte{0x03, 0x04})
	assert.NoError(t, b.Finish())

	assert.Equal(t, []byte{0x01, 0x02, 0xFF, 0xFF, 0x03, 0x04}, buf.data)
}

func TestBinary_DropsBelowBase(t *testing.T) {
	var buf seekBuf
	b := objfile.NewBinary(&buf, 0x2000, 0, false)

	b.WriteCode(0x1000, []byte{0xAA, 0xBB})
	assert.NoError(t, b.Finish())

	assert.Empty(t, buf.data)
}

func TestBinary_TruncatesAtEnd(t *testing.T) {
	var buf seekBuf
	b := objfile.NewBinary(&buf, 0, 3, true)

	b.WriteCode(0, []byte{1, 2, 3, 4, 5})
	assert.NoError(t, b.Finish())

	assert.Equal(t, []byte{1, 2, 3, 4}, buf.data)
}

func TestBinary_PartialOverlapWithBase(t *testing.T) {
	var buf seekBuf
	b := objfile.NewBinary(&buf, 2, 0, false)

	b.WriteCode(0, []byte{0xFF, 0xFF, 0x10, 0x20})
	assert.NoError(t, b.Finish())

	assert.Equal(t, []byte{0x10, 0x20}, buf.data)
}
