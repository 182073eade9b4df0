package objfile

import "io"

// Binary writes spec.md §6.2's raw binary format: bytes land at addr-base
// in the output, gaps are padded with 0xFF only when a later write extends
// past the previous end of file, end truncates or discards writes past it,
// and base silently drops writes below it. Grounded in the original's
// OBJF_write_bin.
type Binary struct {
	w      io.WriteSeeker
	base   uint32
	end    uint32
	hasEnd bool
	eof    uint32 // current length of output relative to base
	err    error
}

// NewBinary returns a raw-binary writer over w. If hasEnd is false, end is
// ignored and output is unbounded above base.
func NewBinary(w io.WriteSeeker, base, end uint32, hasEnd bool) *Binary {
	return &Binary{w: w, base: base, end: end, hasEnd: hasEnd}
}

func (b *Binary) SetCPUAddrWidth(bits int) {}

// SetTransferAddress is a no-op: raw binary carries no header to hold it.
func (b *Binary) SetTransferAddress(addr uint32) {}

func (b *Binary) WriteCode(addr uint32, data []byte) {
	if b.err != nil || len(data) == 0 {
		return
	}
	length := uint32(len(data))
	if addr+length <= b.base {
		return
	}
	if b.hasEnd && addr > b.end {
		return
	}
	if addr < b.base {
		skip := b.base - addr
		data = data[skip:]
		addr = b.base
		length = uint32(len(data))
	}
	if b.hasEnd && addr+length-1 > b.end {
		length = b.end - addr + 1
		data = data[:length]
	}
	rel := addr - b.base
	if rel > b.eof {
		if err := b.pad(b.eof, rel-b.eof); err != nil {
			b.err = err
			return
		}
	}
	if _, err := b.w.Seek(int64(rel), io.SeekStart); err != nil {
		b.err = err
		return
	}
	if _, err := b.w.Write(data); err != nil {
		b.err = err
		return
	}
	if newEOF := rel + uint32(len(data)); newEOF > b.eof {
		b.eof = newEOF
	}
}

func (b *Binary) pad(at, n uint32) error {
	if _, err := b.w.Seek(int64(at), io.SeekStart); err != nil {
		return err
	}
	fill := make([]byte, n)
	for i := range fill {
		fill[i] = 0xFF
	}
	_, err := b.w.Write(fill)
	return err
}

func (b *Binary) Finish() error { return b.err }
