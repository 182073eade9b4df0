// Package fmtsrc reformats source lines into aligned label/opcode/operand/
// comment columns.
//
// Grounded in the teacher's tools/format.go (FormatStyle/FormatOptions/
// Formatter, padToColumn column alignment), but rebuilt as a line-at-a-time
// transform over raw text using internal/lexer's label-column and opcode-
// word recognition instead of reformatting a parser.Program AST, which this
// assembler never builds: spec.md's line-oriented model has no retained
// instruction/operand tree to walk after assembly, so the formatter re-reads
// each source line the same way pass.Assembler.processLine does.
package fmtsrc

import (
	"strings"

	"github.com/crossasm/asmx/internal/lexer"
)

// Style selects a formatting preset, mirroring the teacher's FormatStyle.
type Style int

const (
	Default Style = iota
	Compact
	Expanded
)

// Options controls column placement, mirroring the teacher's FormatOptions.
type Options struct {
	Style             Style
	InstructionColumn int
	OperandColumn     int
	CommentColumn     int
	AlignOperands     bool
	AlignComments     bool
}

// DefaultOptions matches the teacher's DefaultFormatOptions layout.
func DefaultOptions() Options {
	return Options{
		Style:             Default,
		InstructionColumn: 8,
		OperandColumn:     16,
		CommentColumn:     40,
		AlignOperands:     true,
		AlignComments:     true,
	}
}

// CompactOptions collapses every column to a single space, mirroring the
// teacher's CompactFormatOptions.
func CompactOptions() Options {
	return Options{Style: Compact}
}

// ExpandedOptions widens every column, mirroring ExpandedFormatOptions.
func ExpandedOptions() Options {
	return Options{
		Style:             Expanded,
		InstructionColumn: 12,
		OperandColumn:     24,
		CommentColumn:     50,
		AlignOperands:     true,
		AlignComments:     true,
	}
}

// parsedLine is one source line's column-zero label, opcode word, operand
// text, and trailing comment (comment includes the leading ';').
type parsedLine struct {
	label   string
	opcode  string
	operand string
	comment string
	blank   bool
}

// Format reformats src, returning the aligned result. Lines the parser
// can't make sense of (continuation text inside a multi-line string, for
// instance) pass through unchanged.
func Format(src string, opts Options) string {
	lx := lexer.New(lexer.Options{})
	lines := strings.Split(src, "\n")
	var out strings.Builder
	for i, raw := range lines {
		if i == len(lines)-1 && raw == "" {
			// Trailing split artifact from a final newline; don't add an
			// extra blank line.
			continue
		}
		pl := parseLine(lx, raw)
		out.WriteString(render(pl, opts))
		out.WriteByte('\n')
	}
	result := out.String()
	return strings.TrimSuffix(result, "\n") + "\n"
}

func parseLine(lx *lexer.Lexer, raw string) parsedLine {
	trimmed := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(trimmed) == "" {
		return parsedLine{blank: true}
	}

	hasLabelCol := trimmed[0] != ' ' && trimmed[0] != '\t' && trimmed[0] != ';'
	lx.SetLine(trimmed)

	var pl parsedLine
	if hasLabelCol {
		kind, word := lx.GetWord()
		if kind == lexer.WordIdentifier {
			pl.label = word
			lx.Expect(':')
		}
	}

	if rest := strings.TrimSpace(lx.Remaining()); strings.HasPrefix(rest, ";") {
		pl.comment = rest
		return pl
	}

	if lx.AtEOL() {
		return pl
	}

	_, pl.opcode = lx.GetOpWord()

	rest := lx.Remaining()
	operand, comment := splitComment(rest)
	pl.operand = strings.TrimSpace(operand)
	pl.comment = strings.TrimSpace(comment)
	return pl
}

// splitComment finds the ';' that starts a trailing comment, ignoring any
// ';' that falls inside a single- or double-quoted string.
func splitComment(s string) (code, comment string) {
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
		case ';':
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func render(pl parsedLine, opts Options) string {
	if pl.blank {
		return ""
	}
	if pl.label == "" && pl.opcode == "" {
		return pl.comment
	}

	if opts.Style == Compact {
		return renderCompact(pl)
	}

	var sb strings.Builder
	if pl.label != "" {
		sb.WriteString(pl.label)
		sb.WriteByte(':')
	}

	if pl.opcode != "" {
		padTo(&sb, opts.InstructionColumn)
		sb.WriteString(pl.opcode)
	}

	if pl.operand != "" {
		if opts.AlignOperands {
			padTo(&sb, opts.OperandColumn)
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(pl.operand)
	}

	if pl.comment != "" {
		if opts.AlignComments {
			padTo(&sb, opts.CommentColumn)
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(pl.comment)
	}

	return sb.String()
}

func renderCompact(pl parsedLine) string {
	parts := make([]string, 0, 4)
	if pl.label != "" {
		parts = append(parts, pl.label+":")
	}
	if pl.opcode != "" {
		parts = append(parts, pl.opcode)
	}
	if pl.operand != "" {
		parts = append(parts, pl.operand)
	}
	line := strings.Join(parts, " ")
	if pl.comment != "" {
		if line != "" {
			line += " "
		}
		line += pl.comment
	}
	return line
}

// padTo appends spaces until sb's length reaches col, or a single space if
// it has already passed col.
func padTo(sb *strings.Builder, col int) {
	if sb.Len() >= col {
		sb.WriteByte(' ')
		return
	}
	for sb.Len() < col {
		sb.WriteByte(' ')
	}
}
