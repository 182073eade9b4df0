package objfile

import "io"

// TRSDOS writes spec.md §6.2's TRSDOS `.cmd` format: a name record, one or
// more load records of up to reclen bytes, and a transfer record.
// Grounded in the original's OBJF_write_trsdos.
type TRSDOS struct {
	w       io.Writer
	name    string
	buf     *recordBuffer
	hdrDone bool
	hasXfer bool
	xfer    uint32
	err     error
}

// NewTRSDOS returns a TRSDOS `.cmd` writer over w; reclen caps each load
// record's data length (<=0 or >256 falls back to the original's default
// of 256).
func NewTRSDOS(w io.Writer, name string, reclen int) *TRSDOS {
	if reclen <= 0 || reclen > trsBufMax {
		reclen = trsBufMax
	}
	t := &TRSDOS{w: w, name: name}
	t.buf = newRecordBuffer(reclen, t.writeData)
	return t
}

func (t *TRSDOS) SetCPUAddrWidth(bits int) {}

func (t *TRSDOS) SetTransferAddress(addr uint32) {
	t.hasXfer = true
	t.xfer = addr
}

func (t *TRSDOS) WriteCode(addr uint32, data []byte) {
	t.writeHeader()
	t.buf.Write(addr, data)
}

func (t *TRSDOS) Finish() error {
	t.writeHeader()
	t.buf.Flush()
	if t.hasXfer {
		t.writeBytes(0x02, 0x02, byte(t.xfer), byte(t.xfer>>8))
	}
	return t.err
}

func (t *TRSDOS) writeHeader() {
	if t.hdrDone {
		return
	}
	t.hdrDone = true
	t.writeBytes(0x05, 0x06)
	t.writeBytes(paddedName(t.name)...)
}

// writeData emits one `01 LL+2 AL AH data...` load record.
func (t *TRSDOS) writeData(addr uint32, data []byte) {
	t.writeBytes(0x01, byte(len(data)+2), byte(addr), byte(addr>>8))
	t.writeBytes(data...)
}

func (t *TRSDOS) writeBytes(bs ...byte) {
	if t.err != nil {
		return
	}
	if _, err := t.w.Write(bs); err != nil {
		t.err = err
	}
}
