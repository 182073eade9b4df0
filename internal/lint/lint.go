// Package lint checks an assembled source file for undefined references,
// unused labels, multiply-defined symbols, and near-miss typos.
//
// Grounded in the teacher's tools/lint.go (LintLevel/LintIssue/Linter,
// collectLabels/checkUndefinedLabels/checkUnusedLabels, the Levenshtein
// near-miss suggestion), rebuilt around this assembler's own
// internal/symtab.Table rather than parser.Program: spec.md's two-pass
// driver already resolves every symbol's defined/multiply-defined/
// reference-count state by end of assembly, so the checks here read that
// table directly instead of re-deriving it from an AST walk.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/lexer"
	"github.com/crossasm/asmx/internal/symtab"
)

// Level classifies a finding's severity, mirroring the teacher's LintLevel.
type Level int

const (
	Error Level = iota
	Warning
	Info
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Issue is a single finding, mirroring the teacher's LintIssue.
type Issue struct {
	Level   Level
	Pos     diag.Position
	Message string
	Code    string
}

func (i *Issue) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", i.Pos, i.Level, i.Message, i.Code)
}

// Options controls which checks run, mirroring the teacher's LintOptions.
type Options struct {
	CheckUnused  bool
	SuggestFixes bool
}

// DefaultOptions matches the teacher's DefaultLintOptions.
func DefaultOptions() Options {
	return Options{CheckUnused: true, SuggestFixes: true}
}

// SourceLine is one line of input, positioned for diagnostics.
type SourceLine struct {
	Pos  diag.Position
	Text string
}

// Run checks table (the symbol table a completed assembly left behind)
// against lines and returns every issue found, in source order.
func Run(table *symtab.Table, lines []SourceLine, opts Options) []*Issue {
	var issues []*Issue

	defSite := make(map[string]diag.Position)
	refSites := make(map[string][]diag.Position)
	lx := lexer.New(lexer.Options{})
	for _, line := range lines {
		label, words := scanLine(lx, line.Text)
		if label != "" {
			if _, seen := defSite[label]; !seen {
				defSite[label] = line.Pos
			}
		}
		for _, w := range words {
			if w == label {
				continue
			}
			refSites[w] = append(refSites[w], line.Pos)
		}
	}

	names := make([]string, 0, len(defSite))
	for name := range defSite {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, sym := range table.All() {
		if !sym.Defined {
			continue
		}
		if sym.MultiplyDefined {
			issues = append(issues, &Issue{
				Level:   Error,
				Pos:     sym.DefPos,
				Message: fmt.Sprintf("symbol %q is multiply defined", sym.Name),
				Code:    "DUP_LABEL",
			})
		}
	}

	for name, sites := range refSites {
		sym, ok := table.Lookup(name)
		if ok && sym.Defined {
			continue
		}
		msg := fmt.Sprintf("undefined symbol %q", name)
		if opts.SuggestFixes {
			if best, ok := findSimilar(name, names); ok {
				msg += fmt.Sprintf(", did you mean %q?", best)
			}
		}
		issues = append(issues, &Issue{
			Level:   Error,
			Pos:     sites[0],
			Message: msg,
			Code:    "UNDEF_LABEL",
		})
	}

	if opts.CheckUnused {
		for _, sym := range table.All() {
			if !sym.Defined || sym.RefCount > 0 || isSpecialLabel(sym.Name) {
				continue
			}
			issues = append(issues, &Issue{
				Level:   Warning,
				Pos:     sym.DefPos,
				Message: fmt.Sprintf("label %q is defined but never referenced", sym.Name),
				Code:    "UNUSED_LABEL",
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Pos.Filename != issues[j].Pos.Filename {
			return issues[i].Pos.Filename < issues[j].Pos.Filename
		}
		return issues[i].Pos.Line < issues[j].Pos.Line
	})
	return issues
}

// isSpecialLabel excludes conventional entry-point names from the unused
// check, mirroring the teacher's isSpecialLabel.
func isSpecialLabel(name string) bool {
	switch name {
	case "START", "MAIN", "ENTRY", "RESET":
		return true
	default:
		return false
	}
}

// scanLine splits one raw source line into its column-zero label (if any),
// its opcode/directive word, and every identifier word in the operand list
// that follows (the opcode itself is excluded, since it names a mnemonic
// or directive, never a symbol).
func scanLine(lx *lexer.Lexer, text string) (label string, words []string) {
	trimmed := strings.TrimRight(text, "\r\n")
	hasLabelCol := len(trimmed) > 0 && trimmed[0] != ' ' && trimmed[0] != '\t'
	lx.SetLine(trimmed)

	if hasLabelCol {
		kind, word := lx.GetWord()
		if kind == lexer.WordIdentifier {
			label = word
			lx.Expect(':')
		}
	}

	if lx.AtEOL() {
		return label, nil
	}
	lx.GetOpWord() // the opcode or directive word; not a symbol reference

	for {
		kind, word := lx.GetOpWord()
		if kind == lexer.WordEOL {
			break
		}
		if kind == lexer.WordIdentifier {
			words = append(words, word)
		}
	}
	return label, words
}

// findSimilar returns the defined name closest to want by edit distance,
// mirroring the teacher's findSimilarLabel, accepting only a close match
// (distance <= 2 and no more than half the name's length).
func findSimilar(want string, candidates []string) (string, bool) {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		if c == want {
			continue
		}
		d := levenshtein(want, c)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist < 0 || bestDist > 2 || bestDist*2 > len(want) {
		return "", false
	}
	return best, true
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
