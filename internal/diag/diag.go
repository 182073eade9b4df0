// Package diag implements the assembler's position-tagged diagnostics.
//
// It generalizes the teacher's parser.Error/parser.ErrorList pattern
// (position + kind + message, collected into a list with one rendered
// Error() string) to the three severities spec.md §7 requires: warning,
// error, and fatal.
package diag

import (
	"fmt"
	"strings"
)

// Position is a file-name + line-number pair, as produced by the include
// stack (spec.md §3 "Source position").
type Position struct {
	Filename string
	Line     int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// Severity classifies a diagnostic per spec.md §7.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported condition, tied to the innermost source
// position at the time it was raised.
type Diagnostic struct {
	Pos     Position
	Sev     Severity
	Message string
	Pass    int // 1 or 2; pass-1 errors are suppressed from listing unless requested
}

func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Sev, d.Message)
}

// List accumulates diagnostics across both passes and reports the error
// count the pass driver needs for exit-status and listing footer purposes.
type List struct {
	items    []*Diagnostic
	errCount int
}

// Add records a diagnostic. Only Error and Fatal increment the error count;
// Warning does not (spec.md §7).
func (l *List) Add(pos Position, sev Severity, pass int, format string, args ...any) *Diagnostic {
	d := &Diagnostic{Pos: pos, Sev: sev, Message: fmt.Sprintf(format, args...), Pass: pass}
	l.items = append(l.items, d)
	if sev != Warning {
		l.errCount++
	}
	return d
}

// Warnf records a warning at pos.
func (l *List) Warnf(pos Position, pass int, format string, args ...any) {
	l.Add(pos, Warning, pass, format, args...)
}

// Errorf records an error at pos.
func (l *List) Errorf(pos Position, pass int, format string, args ...any) {
	l.Add(pos, Error, pass, format, args...)
}

// ErrorCount returns the number of Error/Fatal diagnostics reported so far.
func (l *List) ErrorCount() int { return l.errCount }

// HasErrors reports whether any Error or Fatal diagnostic was recorded.
func (l *List) HasErrors() bool { return l.errCount > 0 }

// All returns every diagnostic in report order.
func (l *List) All() []*Diagnostic { return l.items }

// ForPass filters diagnostics belonging to the given pass, honoring the
// "pass-1 errors are suppressed from the listing unless cl_ListP1 is set"
// rule from spec.md §4.9.
func (l *List) ForPass(pass int, includePass1 bool) []*Diagnostic {
	if pass == 1 && !includePass1 {
		return nil
	}
	var out []*Diagnostic
	for _, d := range l.items {
		if d.Pass == pass {
			out = append(out, d)
		}
	}
	return out
}

// AtLine returns the diagnostics raised at pos: always those raised in
// pass 2, plus those raised in pass 1 at the same position when
// includePass1 is set (the listing is only ever rendered during pass 2, so
// a pass-1 diagnostic can only reach it by being merged in here).
func (l *List) AtLine(pos Position, includePass1 bool) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.items {
		if d.Pos != pos {
			continue
		}
		if d.Pass == 2 || (d.Pass == 1 && includePass1) {
			out = append(out, d)
		}
	}
	return out
}

// String renders every diagnostic, one per line.
func (l *List) String() string {
	var sb strings.Builder
	for _, d := range l.items {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
