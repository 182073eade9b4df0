package objfile

import (
	"fmt"
	"io"
)

// ihexRecordLen is IHEX_SIZE in the original: the maximum number of data
// bytes carried by one Intel HEX data record.
const ihexRecordLen = 16

// IntelHex writes spec.md §6.2's Intel HEX format: one `:`-prefixed ASCII
// line per record, type 00 for data, 04/05 for the extended/start linear
// address of a 32-bit address or transfer address, 01 for end-of-file.
type IntelHex struct {
	w       io.Writer
	buf     *recordBuffer
	page    uint32
	haveLo  bool // whether a type-04 record has been written
	hasXfer bool
	xfer    uint32
	err     error
}

// NewIntelHex returns an Intel HEX writer over w.
func NewIntelHex(w io.Writer) *IntelHex {
	h := &IntelHex{w: w}
	h.buf = newRecordBuffer(ihexRecordLen, h.writeData)
	return h
}

func (h *IntelHex) WriteCode(addr uint32, data []byte) { h.buf.Write(addr, data) }

func (h *IntelHex) SetCPUAddrWidth(bits int) {}

func (h *IntelHex) SetTransferAddress(addr uint32) {
	h.hasXfer = true
	h.xfer = addr
}

// Finish flushes any buffered record and writes the transfer-address and
// end-of-file records, per OBJF_CodeEnd.
func (h *IntelHex) Finish() error {
	h.buf.Flush()
	xfer := uint32(0)
	if h.hasXfer {
		xfer = h.xfer
		if xfer > 0xFFFF {
			h.writeExtended(xfer>>16, 5)
		}
	}
	h.writeRecord(xfer&0xFFFF, nil, 1)
	return h.err
}

func (h *IntelHex) writeData(addr uint32, data []byte) {
	// Addresses below 64K need no type-04 record: a reader starts with an
	// upper address word of zero, which is also page's initial value.
	if page := addr >> 16; page != h.page {
		h.writeExtended(page, 4)
		h.page = page
		h.haveLo = true
	}
	h.writeRecord(addr&0xFFFF, data, 0)
}

// writeExtended emits a type-04 (extended linear address) or type-05
// (start linear address) record carrying the high word of a 32-bit
// address, per spec.md §6.2.
func (h *IntelHex) writeExtended(highWord uint32, rectype int) {
	h.writeRecord(0, []byte{byte(highWord >> 8), byte(highWord)}, rectype)
}

func (h *IntelHex) writeRecord(addr uint32, data []byte, rectype int) {
	if h.err != nil {
		return
	}
	checksum := len(data) + int(addr>>8&0xFF) + int(addr&0xFF) + rectype
	if _, err := fmt.Fprintf(h.w, ":%02X%04X%02X", len(data), addr&0xFFFF, rectype); err != nil {
		h.err = err
		return
	}
	for _, b := range data {
		if _, err := fmt.Fprintf(h.w, "%02X", b); err != nil {
			h.err = err
			return
		}
		checksum += int(b)
	}
	if _, err := fmt.Fprintf(h.w, "%02X\n", (-checksum)&0xFF); err != nil {
		h.err = err
	}
}
