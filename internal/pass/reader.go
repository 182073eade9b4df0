// Package pass implements the two-pass driver of spec.md §4.9: the
// Assembler value that threads lexer, expression evaluator, symbol table,
// macro table, conditional stack, segment table, instruction buffer, and
// CPU registry through the assembly of one source file, plus the
// coroutine-like layered line reader spec.md §9's Design Notes describes.
//
// Grounded in the teacher's parser/parser.go (Parser.firstPass's line loop
// and handleDirective dispatch) and parser/file.go (ParseFile's file-level
// entry point), generalized from a single-file, single-pass ARM parse into
// the two-pass, multi-file, macro-aware driver spec.md requires.
package pass

import (
	"fmt"
	"strings"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/macro"
)

// MaxIncludeDepth is the concurrent-include-file ceiling from spec.md §5.
const MaxIncludeDepth = 10

// FileReader walks one file's lines, already split, reporting its own
// Position as it goes.
type FileReader struct {
	filename string
	lines    []string
	idx      int
}

// NewFileReader splits content into lines for sequential reading.
func NewFileReader(filename, content string) *FileReader {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return &FileReader{filename: filename, lines: strings.Split(content, "\n")}
}

// NextLine returns the next line and its position, or false at EOF.
func (f *FileReader) NextLine() (string, diag.Position, bool) {
	if f.idx >= len(f.lines) {
		return "", diag.Position{}, false
	}
	line := f.lines[f.idx]
	f.idx++
	return line, diag.Position{Filename: f.filename, Line: f.idx}, true
}

// includeStack is the (b) layer of spec.md §9's three-layer reader: nested
// INCLUDE files, up to MaxIncludeDepth deep.
type includeStack struct {
	frames []*FileReader
}

func (s *includeStack) push(fr *FileReader) error {
	// The main file is frames[0], so MaxIncludeDepth INCLUDE files fit above it.
	if len(s.frames) > MaxIncludeDepth {
		return fmt.Errorf("include nesting exceeds %d levels", MaxIncludeDepth)
	}
	s.frames = append(s.frames, fr)
	return nil
}

func (s *includeStack) nextLine() (string, diag.Position, bool) {
	for len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		if line, pos, ok := top.NextLine(); ok {
			return line, pos, true
		}
		s.frames = s.frames[:len(s.frames)-1]
	}
	return "", diag.Position{}, false
}

// macroFrame is one active macro expansion on the reader's macro stack.
type macroFrame struct {
	inv     *macro.Invocation
	callPos diag.Position
}

// Reader implements spec.md §9's three-layered next_line(): macro-body
// lines take priority over the include stack, which takes priority over
// the underlying main-source stack (the bottom of the include stack is
// the main source file itself).
type Reader struct {
	macros     *macro.Table
	macroStack []*macroFrame
	includes   includeStack
}

// NewReader creates a reader whose bottom include-stack frame is the main
// source file.
func NewReader(macros *macro.Table, mainFile *FileReader) (*Reader, error) {
	r := &Reader{macros: macros}
	if err := r.includes.push(mainFile); err != nil {
		return nil, err
	}
	return r, nil
}

// PushInclude opens a nested INCLUDE file.
func (r *Reader) PushInclude(fr *FileReader) error {
	return r.includes.push(fr)
}

// EnterMacro pushes a new macro-expansion frame, returning an error past
// spec.md §3's 10-level nesting cap.
func (r *Reader) EnterMacro(inv *macro.Invocation, callPos diag.Position) error {
	if err := r.macros.Enter(); err != nil {
		return err
	}
	r.macroStack = append(r.macroStack, &macroFrame{inv: inv, callPos: callPos})
	return nil
}

// InMacro reports whether a macro body is currently supplying lines.
func (r *Reader) InMacro() bool { return len(r.macroStack) > 0 }

// NextLine returns the next logical line from whichever layer currently
// has one: macro body first, then the include/main-source stack.
func (r *Reader) NextLine() (string, diag.Position, bool) {
	for len(r.macroStack) > 0 {
		top := r.macroStack[len(r.macroStack)-1]
		if line, ok := top.inv.NextLine(); ok {
			return line, top.callPos, true
		}
		r.macros.Exit()
		r.macroStack = r.macroStack[:len(r.macroStack)-1]
	}
	return r.includes.nextLine()
}
