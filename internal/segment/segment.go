// Package segment implements the segment and location-counter model of
// spec.md §4.6: named segments, each with a logical location counter `loc`
// and a physical output counter `cod`, plus ORG/RORG/REND/ALIGN/EVEN/
// WORDSIZE.
//
// Grounded in the teacher's loader.LoadProgramIntoVM's address bookkeeping
// (the one place the teacher advances an address counter while writing
// bytes out), generalized to the saved-pair-per-segment and loc/cod split
// spec.md §3 requires — the teacher has no segment concept at all since an
// ARM image is one flat address space.
package segment

import "fmt"

// pair is one segment's saved location-counter state.
type pair struct {
	loc uint32
	cod uint32
	gen bool // false for SEG.U (no-generate) segments
}

// Table manages every named segment and the one current segment.
type Table struct {
	segs       map[string]*pair
	order      []string // first-seen order, for object/listing output
	cur        string
	rorgSaved  uint32 // cod at the time RORG was issued, restored by REND
	rorgActive bool
	wordSize   int    // bits; 0 means "use CPU default"
	wordDiv    uint32 // ceil(wordSize/8), minimum 1
	addrBits   int    // 16, 24, or 32 per CPU
}

// New creates a segment table with a single default segment named name,
// sized for a CPU whose address width is addrBits (16, 24, or 32).
func New(defaultName string, addrBits int) *Table {
	t := &Table{
		segs:     make(map[string]*pair),
		addrBits: addrBits,
		wordDiv:  1,
	}
	t.segs[defaultName] = &pair{gen: true}
	t.order = append(t.order, defaultName)
	t.cur = defaultName
	return t
}

func (t *Table) cp() *pair { return t.segs[t.cur] }

// CurrentName returns the active segment's name.
func (t *Table) CurrentName() string { return t.cur }

// Loc returns the current logical location counter, scaled by WordDiv as
// spec.md §3 requires for `$`/`*`.
func (t *Table) Loc() int32 { return int32(t.cp().loc / t.wordDiv) }

// RawLoc returns the unscaled loc, for address-width masking and emission.
func (t *Table) RawLoc() uint32 { return t.cp().loc }

// Cod returns the current physical output counter.
func (t *Table) Cod() uint32 { return t.cp().cod }

// WordDiv returns ceil(wordSize/8), the scale factor for `$`/`*`.
func (t *Table) WordDiv() uint32 { return t.wordDiv }

// Generates reports whether the current segment emits object bytes
// (false for a `SEG.U` segment).
func (t *Table) Generates() bool { return t.cp().gen }

// mask confines an address to the CPU's address width.
func (t *Table) mask(v uint32) uint32 {
	switch t.addrBits {
	case 16:
		return v & 0xFFFF
	case 24:
		return v & 0xFFFFFF
	default:
		return v
	}
}

// Advance moves both loc and cod forward by n bytes, as instruction/data
// emission does after each source line.
func (t *Table) Advance(n uint32) {
	p := t.cp()
	p.loc = t.mask(p.loc + n)
	p.cod = t.mask(p.cod + n)
}

// Switch selects (creating if absent) the named segment. gen is false only
// the first time a segment is created via `SEG.U`; later switches ignore
// it and keep the segment's original generate flag.
func (t *Table) Switch(name string, gen bool) {
	if _, ok := t.segs[name]; !ok {
		t.segs[name] = &pair{gen: gen}
		t.order = append(t.order, name)
	}
	t.cur = name
	t.rorgActive = false
}

// Org sets both loc and cod to addr: an absolute origin.
func (t *Table) Org(addr uint32) {
	p := t.cp()
	p.loc = t.mask(addr)
	p.cod = t.mask(addr)
	t.rorgActive = false
}

// Rorg sets loc to addr, leaving cod where it was, per spec.md §4.6.
func (t *Table) Rorg(addr uint32) {
	p := t.cp()
	t.rorgSaved = p.cod
	p.loc = t.mask(addr)
	t.rorgActive = true
}

// Rend reverts loc to the cod value saved at the matching RORG.
func (t *Table) Rend() error {
	if !t.rorgActive {
		return fmt.Errorf("REND without matching RORG")
	}
	p := t.cp()
	p.loc = t.rorgSaved
	t.rorgActive = false
	return nil
}

// Align advances loc (and cod in lock-step) to the next multiple of n, a
// power of two no greater than 65535. Align(2) implements EVEN.
func (t *Table) Align(n uint32) error {
	if n == 0 || n > 65535 || (n&(n-1)) != 0 {
		return fmt.Errorf("ALIGN operand %d is not a power of two <= 65535", n)
	}
	p := t.cp()
	if rem := p.loc % n; rem != 0 {
		pad := n - rem
		p.loc = t.mask(p.loc + pad)
		p.cod = t.mask(p.cod + pad)
	}
	return nil
}

// SetWordSize sets the word size in bits (1..64, or 0 to reset to the CPU
// default), recomputing WordDiv = ceil(n/8).
func (t *Table) SetWordSize(bits int, cpuDefault int) error {
	if bits == 0 {
		bits = cpuDefault
	}
	if bits < 1 || bits > 64 {
		return fmt.Errorf("WORDSIZE %d out of range 1..64", bits)
	}
	t.wordSize = bits
	t.wordDiv = uint32((bits + 7) / 8)
	if t.wordDiv == 0 {
		t.wordDiv = 1
	}
	return nil
}

// Names returns every segment name in first-seen order, for the object
// writer and listing to walk segments deterministically.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// SetAddrBits changes the address-width mask applied by Advance/Org/Rorg,
// for a mid-assembly `PROCESSOR`/`CPU` switch to a back end with a
// different address width.
func (t *Table) SetAddrBits(bits int) { t.addrBits = bits }
