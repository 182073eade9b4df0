// Package cpu implements the back-end contract and CPU registry of
// spec.md §4.8/§6.4: per-CPU opcode tables with `*`-wildcard suffix
// matching, and the capability set a back end registers (DoCPUOpcode,
// optional DoCPULabelOp, optional PassInit).
//
// Grounded in the teacher's encoder.Encoder.EncodeInstruction dispatch
// switch (one big per-mnemonic switch over a single, fixed ARM table),
// generalized into a registry of named, swappable opcode tables because
// spec.md requires multiple CPUs coexisting in one run (the `.Z80`
// mid-file CPU switch in spec.md §4.8).
package cpu

import (
	"strings"

	"github.com/crossasm/asmx/internal/emit"
	"github.com/crossasm/asmx/internal/lexer"
)

// OpType tags what an opcode-table entry means to its back end. Values at
// or above LabelOp are dispatched to DoCPULabelOp instead of DoCPUOpcode,
// per spec.md §4.8.
type OpType int

// LabelOp is the threshold spec.md §4.8 refers to as "type >= LabelOp":
// back ends define their own OpType values, reserving everything at or
// above this one for opcodes that need the line's label text (e.g. SET,
// EQU-like pseudo-ops a back end itself wants to own).
const LabelOp OpType = 1 << 14

// OpEntry is one opcode-table row. Name may end with `*` to match any
// suffix (so `DC*` matches `DC`, `DC.B`, `DC.W`, ...); the unmatched
// remainder is left for the caller to push back onto the line.
type OpEntry struct {
	Name string
	Type OpType
	Parm int
}

// Context is the shared per-assembly state a back end needs to decode one
// opcode: the line's remaining text (via Lexer), an expression evaluator
// over the current location, the instruction-emission buffer, and
// diagnostic reporting. spec.md §9's "back ends receive [the Assembler] as
// context" is realized as this narrow interface so back-end packages never
// import the pass driver itself.
type Context interface {
	Lexer() *lexer.Lexer
	// Eval parses one expression starting at the lexer's current position
	// and returns its value and whether it was fully resolved (spec.md
	// §4.2's evalKnown).
	Eval() (value int32, known bool, err error)
	// Loc returns the current segment's scaled location counter ($/*).
	Loc() int32
	Emit() *emit.Buffer
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Backend is the capability every registered back end must provide.
type Backend interface {
	// Name returns the back end's version banner string.
	Name() string
	// DoCPUOpcode handles one dispatched opcode. handled is false only if
	// the back end declines an entry it was still given (should not
	// normally happen once dispatch has matched a table entry).
	DoCPUOpcode(ctx Context, typ OpType, parm int) (handled bool, err error)
}

// LabelOpHandler is implemented by back ends that have at least one
// OpType >= LabelOp in their table.
type LabelOpHandler interface {
	DoCPULabelOp(ctx Context, typ OpType, parm int, label string) (handled bool, err error)
}

// PassIniter is implemented by back ends that hold per-pass state (spec.md
// §5's "1802's selmb, 8051's RP hint") needing a reset at the start of
// each pass.
type PassIniter interface {
	PassInit()
}

// Def describes one CPU type: its back end plus the fixed facts spec.md
// §6.4 lists (endian, address width, listing width, default word size,
// dialect options, opcode table).
type Def struct {
	Name      string
	Index     int
	BigEndian bool
	AddrWidth int // 16, 24, or 32
	ListWidth int // 16 or 24; 24 enables the "space before" listing gap
	WordSize  int // default word size in bits
	Options   map[string]bool
	Opcodes   []OpEntry
	Backend   Backend
}

// Registry maps CPU name to its Def, supporting the `.Z80`-style mid-file
// CPU switch spec.md §4.8 describes.
type Registry struct {
	byName map[string]*Def
	order  []string
	dflt   string
}

// NewRegistry creates an empty CPU registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Def)}
}

// Register adds a CPU definition. The first one registered becomes the
// registry's default.
func (r *Registry) Register(def *Def) {
	name := strings.ToUpper(def.Name)
	r.byName[name] = def
	r.order = append(r.order, name)
	if r.dflt == "" {
		r.dflt = name
	}
}

// SetDefault overrides which CPU PassInit selects absent a `PROCESSOR`/
// `CPU`/`.xxx` directive (the CLI's `-C cpu` flag, per spec.md §6.1).
func (r *Registry) SetDefault(name string) bool {
	name = strings.ToUpper(name)
	if _, ok := r.byName[name]; !ok {
		return false
	}
	r.dflt = name
	return true
}

// Lookup finds a CPU definition by name, case-insensitively.
func (r *Registry) Lookup(name string) (*Def, bool) {
	d, ok := r.byName[strings.ToUpper(name)]
	return d, ok
}

// Default returns the current default CPU definition, or nil if none has
// been registered.
func (r *Registry) Default() *Def {
	if r.dflt == "" {
		return nil
	}
	return r.byName[r.dflt]
}

// Names returns every registered CPU name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MatchOpcode searches table for word, applying spec.md §4.8's `*`
// wildcard suffix rule: a table entry ending in `*` matches any token that
// has it as a prefix, and the unmatched suffix of word is returned for the
// caller to push back onto the line (e.g. matching `DC*` against `DC.B`
// leaves `.B` for the directive handler to re-read).
func MatchOpcode(table []OpEntry, word string) (entry OpEntry, remainder string, ok bool) {
	upper := strings.ToUpper(word)
	// Exact matches take priority over wildcard matches, and the longest
	// wildcard prefix wins among wildcard candidates.
	for _, e := range table {
		if !strings.HasSuffix(e.Name, "*") && strings.EqualFold(e.Name, upper) {
			return e, "", true
		}
	}
	bestLen := -1
	var best OpEntry
	for _, e := range table {
		if !strings.HasSuffix(e.Name, "*") {
			continue
		}
		prefix := strings.ToUpper(e.Name[:len(e.Name)-1])
		if strings.HasPrefix(upper, prefix) && len(prefix) > bestLen {
			bestLen = len(prefix)
			best = e
		}
	}
	if bestLen >= 0 {
		return best, word[bestLen:], true
	}
	return OpEntry{}, "", false
}
