// Package symtab implements the symbol table described in spec.md §4.3: an
// unordered collection keyed by name, sorted only when producing a listing,
// with Ref/Def operations and temporary-label scoping.
//
// Grounded in the teacher's parser/symbols.go (SymbolTable.Define/Lookup/Get)
// but reworked around the defined/known-this-pass/multiply-defined/is-SET/
// is-EQU flag set spec.md §3 requires, and the `.foo`/`@foo` composite-name
// scoping spec.md §4.3 adds (which parser/symbols.go has no equivalent of).
package symtab

import (
	"fmt"
	"sort"

	"github.com/crossasm/asmx/internal/diag"
)

// Symbol is one entry, addressable in expressions by its resolved name
// (temporary labels are stored and looked up under their synthesized
// composite name, never their bare `.foo`/`@foo` spelling).
type Symbol struct {
	Name            string
	Value           int32
	Defined         bool
	DefinedPass1    bool // was Defined at any point during pass 1
	Known           bool // was Def'd already during pass 2, for phase-error detection
	MultiplyDefined bool
	IsSet           bool
	IsEqu           bool
	DefPos          diag.Position
	RefCount        int
}

// DefErrorKind distinguishes the two Def failure modes spec.md §4.3 names.
type DefErrorKind int

const (
	MultiplyDefined DefErrorKind = iota
	PhaseError
)

// DefError reports a failed Def call; callers type-assert on Kind to decide
// the diagnostic severity/message spec.md §7 wants.
type DefError struct {
	Kind     DefErrorKind
	Name     string
	FirstPos diag.Position
}

func (e *DefError) Error() string {
	if e.Kind == PhaseError {
		return fmt.Sprintf("phase error: %q value changed between passes", e.Name)
	}
	return fmt.Sprintf("symbol %q multiply defined (first defined at %s)", e.Name, e.FirstPos)
}

// Table is the symbol table for one assembly. Names are folded to upper
// case by the lexer before they ever reach Table, so Table itself does no
// case folding.
type Table struct {
	symbols  map[string]*Symbol
	lastLabl string
	subrLabl string
	pass     int
}

// New creates an empty table, ready for pass 1.
func New() *Table {
	return &Table{symbols: make(map[string]*Symbol), pass: 1}
}

// BeginPass resets per-pass bookkeeping; it does not clear symbols (spec.md
// §3: symbols are "never destroyed" between passes).
func (t *Table) BeginPass(pass int) {
	t.pass = pass
	t.lastLabl = ""
	t.subrLabl = ""
}

// SetLastLabel records the most recent non-temporary label, the scoping
// anchor for a following `.foo` reference (spec.md §4.3).
func (t *Table) SetLastLabel(name string) { t.lastLabl = name }

// SetSubrLabel records the current SUBROUTINE label, which takes scoping
// priority over lastLabl for `.foo` while active. Pass an empty string to
// clear it (leaving the file's top level, or a nested SUBROUTINE ending).
func (t *Table) SetSubrLabel(name string) { t.subrLabl = name }

// resolve maps a possibly-temporary name to its stored composite name.
func (t *Table) resolve(name string) string {
	if name == "" {
		return name
	}
	switch name[0] {
	case '.':
		prefix := t.lastLabl
		if t.subrLabl != "" {
			prefix = t.subrLabl
		}
		return prefix + "." + name[1:]
	case '@':
		return t.lastLabl + "@" + name[1:]
	}
	return name
}

// Ref looks up name's value, creating an undefined placeholder entry if it
// has never been seen. known is true once the invariant in spec.md §3 is
// satisfied: in pass 1, the symbol must already be Defined; in pass 2, it
// must be Defined now OR have been Defined at any point during pass 1.
func (t *Table) Ref(name string) (int32, bool) {
	resolved := t.resolve(name)
	sym, ok := t.symbols[resolved]
	if !ok {
		sym = &Symbol{Name: resolved}
		t.symbols[resolved] = sym
	}
	sym.RefCount++
	var known bool
	if t.pass <= 1 {
		known = sym.Defined
	} else {
		known = sym.Defined || sym.DefinedPass1
	}
	return sym.Value, known
}

// IsDefined reports whether name has ever been defined, for ..DEF/..UNDEF.
// It does not count a reference as a definition.
func (t *Table) IsDefined(name string) bool {
	resolved := t.resolve(name)
	sym, ok := t.symbols[resolved]
	return ok && sym.Defined
}

// Def implements spec.md §4.3's Def: create if absent; if present and
// either not yet defined, or defined-by-SET and the new definition is also
// a SET, update the value. Re-defining a non-SET symbol to the same value is
// a no-op: a location label or EQU is re-run against pass 1's result every
// pass 2, and only a genuinely different value is an error. That error is
// reported as a PhaseError instead of MultiplyDefined when it first happens
// in pass 2 against a symbol Def hasn't already touched this pass.
func (t *Table) Def(name string, value int32, isSet, isEqu bool, pos diag.Position) error {
	resolved := t.resolve(name)
	sym, ok := t.symbols[resolved]
	if !ok {
		sym = &Symbol{Name: resolved}
		t.symbols[resolved] = sym
	}

	var err error
	switch {
	case !sym.Defined || (sym.IsSet && isSet):
		sym.Value = value
		sym.Defined = true
		sym.IsSet = isSet
		sym.IsEqu = isEqu
		sym.DefPos = pos
		if t.pass <= 1 {
			sym.DefinedPass1 = true
		}
	case sym.Value != value:
		sym.MultiplyDefined = true
		if t.pass > 1 && !sym.Known {
			err = &DefError{Kind: PhaseError, Name: resolved, FirstPos: sym.DefPos}
		} else {
			err = &DefError{Kind: MultiplyDefined, Name: resolved, FirstPos: sym.DefPos}
		}
	}

	if t.pass >= 2 {
		sym.Known = true
	}
	return err
}

// Lookup returns the raw stored symbol (after temp-label resolution)
// without creating a placeholder, for read-only consumers like xref/lint.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	resolved := t.resolve(name)
	sym, ok := t.symbols[resolved]
	return sym, ok
}

// All returns every symbol in unspecified map order; callers that need a
// stable listing order should use Sorted.
func (t *Table) All() []*Symbol {
	out := make([]*Symbol, 0, len(t.symbols))
	for _, s := range t.symbols {
		out = append(out, s)
	}
	return out
}

// Sorted returns every symbol ordered by name, for the listing writer's
// end-of-assembly symbol table dump (spec.md §4.3's "sorted only for
// listing").
func (t *Table) Sorted() []*Symbol {
	out := t.All()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Undefined returns every symbol still undefined at end of assembly.
func (t *Table) Undefined() []*Symbol {
	var out []*Symbol
	for _, s := range t.symbols {
		if !s.Defined {
			out = append(out, s)
		}
	}
	return out
}
