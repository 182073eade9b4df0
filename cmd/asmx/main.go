// Command asmx is the command-line entry point for the cross-assembler.
// Flag handling follows the teacher's main.go: a flat list of
// standard-library flag.* declarations and a hand-written printHelp, no
// cobra/urfave. Where spec.md's CLI groups an optional value onto one flag
// (`-b [base[-end]]`, `-t [reclen]`), that is split into a bool flag plus a
// named value flag, the same way the teacher splits `-trace` from
// `-trace-file` rather than parsing an optional flag argument.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crossasm/asmx/backend/mos6502"
	"github.com/crossasm/asmx/backend/z80"
	"github.com/crossasm/asmx/config"
	"github.com/crossasm/asmx/internal/asmserver"
	"github.com/crossasm/asmx/internal/browse"
	"github.com/crossasm/asmx/internal/cpu"
	"github.com/crossasm/asmx/internal/diag"
	"github.com/crossasm/asmx/internal/fmtsrc"
	"github.com/crossasm/asmx/internal/lint"
	"github.com/crossasm/asmx/internal/listing"
	"github.com/crossasm/asmx/internal/objfile"
	"github.com/crossasm/asmx/internal/pass"
	"github.com/crossasm/asmx/internal/xref"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion  = flag.Bool("version", false, "Show version information")
		showHelp     = flag.Bool("help", false, "Show help information")
		errToStderr  = flag.Bool("e", false, "Errors to stderr")
		warnToStderr = flag.Bool("w", false, "Warnings to stderr")
		listPass1    = flag.Bool("1", false, "Write a listing to <src>.lst unless -l names a file (pass-1 diagnostics are not listed)")
		listFile     = flag.String("l", "", "Listing file")
		objFile      = flag.String("o", "", "Object file (default by format)")
		s9           = flag.Bool("s9", false, "S-record, 16-bit addresses")
		s19          = flag.Bool("s19", false, "S-record, 16-bit addresses")
		s28          = flag.Bool("s28", false, "S-record, 24-bit addresses")
		s37          = flag.Bool("s37", false, "S-record, 32-bit addresses")
		binRaw       = flag.Bool("b", false, "Raw binary output")
		binWindow    = flag.String("base", "", "Address window base[-end] for -b")
		trsdos       = flag.Bool("t", false, "TRSDOS /CMD output (implies default CPU Z80)")
		trsdosReclen = flag.Int("treclen", 256, "TRSDOS /CMD record length")
		cassette     = flag.Bool("T", false, "TRS-80 cassette output (implies default CPU Z80)")
		cassReclen   = flag.Int("Treclen", 256, "TRS-80 cassette record length")
		toStdout     = flag.Bool("c", false, "Object to stdout (mutually exclusive with -o and -b)")
		cpuName      = flag.String("C", "", "Default CPU type")

		browseMode = flag.Bool("browse", false, "Open the read-only listing/symbol browser after assembly")
		formatSrc  = flag.Bool("format", false, "Reformat srcfile's columns and print to stdout instead of assembling")
		lintSrc    = flag.Bool("lint", false, "Run static checks (undefined/unused/duplicate symbols) after assembling")
		xrefSrc    = flag.Bool("xref", false, "Print a cross-reference report after assembling")
		serveAPI   = flag.Bool("serve", false, "Start the HTTP assemble service instead of assembling a file")
		servePort  = flag.Int("port", 8080, "Port for -serve")
	)
	var defines flagList
	flag.Var(&defines, "d", "predefine symbol NAME[:]=VALUE (':=' -> SET, '=' -> EQU)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("asmx %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		return
	}

	if *showHelp {
		printHelp()
		return
	}

	if *serveAPI {
		srv := asmserver.NewServer(*servePort)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "asmx: server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(1)
	}
	srcFile := flag.Arg(0)

	content, err := os.ReadFile(srcFile) // #nosec G304 -- user-supplied source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "asmx: cannot read %s: %v\n", srcFile, err)
		os.Exit(1)
	}

	cfg, _ := config.Load()

	if *formatSrc {
		opts := fmtsrc.Options{
			InstructionColumn: cfg.Formatter.InstructionColumn,
			OperandColumn:     cfg.Formatter.OperandColumn,
			CommentColumn:     cfg.Formatter.CommentColumn,
			AlignOperands:     cfg.Formatter.AlignOperands,
			AlignComments:     cfg.Formatter.AlignComments,
		}
		fmt.Print(fmtsrc.Format(string(content), opts))
		return
	}

	reg := newRegistry()
	defaultCPU := cfg.Assembler.DefaultCPU
	if *cpuName != "" {
		defaultCPU = *cpuName
	}
	if *trsdos || *cassette {
		defaultCPU = "Z80"
	}
	if defaultCPU != "" {
		reg.SetDefault(defaultCPU)
	}

	format, srecType := resolveFormat(*s9, *s19, *s28, *s37, *binRaw, *trsdos, *cassette, cfg.Output.Format)
	base, end, hasEnd := parseBinWindow(*binWindow)

	objName := *objFile
	if objName == "" && !*toStdout {
		objName = defaultObjectName(srcFile, format)
	}

	var objWriter *os.File
	if *toStdout {
		objWriter = os.Stdout
	} else {
		objWriter, err = os.Create(objName) // #nosec G304 -- user-controlled output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "asmx: cannot create %s: %v\n", objName, err)
			os.Exit(1)
		}
		defer objWriter.Close()
	}

	sink, err := newObjectSink(format, objWriter, base, end, hasEnd, srecType, *trsdosReclen, *cassReclen, filepath.Base(srcFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "asmx: %v\n", err)
		os.Exit(1)
	}

	var listSink pass.ListingSink
	listName := *listFile
	if listName != "" || *listPass1 {
		if listName == "" {
			listName = strings.TrimSuffix(srcFile, filepath.Ext(srcFile)) + ".lst"
		}
		listWriter, lerr := os.Create(listName) // #nosec G304 -- user-controlled output path
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "asmx: cannot create %s: %v\n", listName, lerr)
			os.Exit(1)
		}
		defer listWriter.Close()
		listSink = listing.New(listWriter, listing.Addr16)
	}

	a := pass.New(reg, osFileSource{root: filepath.Dir(srcFile)}, sink, listSink)
	for _, d := range defines {
		applyDefine(a, d)
	}

	runErr := a.Run(filepath.Base(srcFile), string(content))

	for _, d := range a.Diags.All() {
		toStderr := *errToStderr
		if d.Sev.String() == "warning" {
			toStderr = *warnToStderr
		}
		if toStderr {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}

	lines := xrefLines(string(content), filepath.Base(srcFile))

	if *lintSrc {
		for _, issue := range lint.Run(a.Symtab, lintLines(lines), lint.DefaultOptions()) {
			fmt.Println(issue.String())
		}
	}
	if *xrefSrc {
		fmt.Print(xref.Build(a.Symtab, xrefSourceLines(lines)).String())
	}
	if *browseMode {
		report := xref.Build(a.Symtab, xrefSourceLines(lines))
		listingText := ""
		if listSink != nil && listName != "" {
			if data, rerr := os.ReadFile(listName); rerr == nil { // #nosec G304 -- our own listing file
				listingText = string(data)
			}
		}
		b := browse.New(listingText, report)
		if berr := b.Run(); berr != nil {
			fmt.Fprintf(os.Stderr, "asmx: browser error: %v\n", berr)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "asmx: %v\n", runErr)
		os.Exit(1)
	}
	if a.Diags.HasErrors() {
		os.Exit(1)
	}
}

func newRegistry() *cpu.Registry {
	reg := cpu.NewRegistry()
	reg.Register(mos6502.Def())
	reg.Register(z80.Def())
	return reg
}

// osFileSource reads INCLUDE/INCBIN files relative to the main source
// file's directory.
type osFileSource struct {
	root string
}

func (f osFileSource) ReadFile(name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, name)
	}
	return os.ReadFile(path) // #nosec G304 -- assembler-controlled include path
}

// flagList collects repeated -d NAME[:]=VALUE occurrences.
type flagList []string

func (f *flagList) String() string { return strings.Join(*f, ",") }
func (f *flagList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// applyDefine predefines a symbol from a -d NAME[:]=VALUE flag. `:=` marks
// it SET (redefinable), `=` marks it EQU (fixed), per spec.md §6.1.
func applyDefine(a *pass.Assembler, def string) {
	var name, value string
	var isSet, found bool
	if name, value, found = strings.Cut(def, ":="); found {
		isSet = true
	} else {
		name, value, found = strings.Cut(def, "=")
	}
	if !found {
		fmt.Fprintf(os.Stderr, "asmx: malformed -d %q, expected NAME=VALUE or NAME:=VALUE\n", def)
		return
	}
	name = strings.TrimSpace(name)
	v, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "asmx: malformed -d value %q: %v\n", def, err)
		return
	}
	if err := a.Symtab.Def(name, int32(v), isSet, !isSet, diag.Position{Filename: "-d", Line: 0}); err != nil {
		fmt.Fprintf(os.Stderr, "asmx: -d %s: %v\n", name, err)
	}
}

// resolveFormat turns the format-selecting flags into a format tag and,
// for S-records, the address width to use.
func resolveFormat(s9, s19, s28, s37, binRaw, trsdos, cassette bool, fallback string) (string, objfile.SRecordType) {
	switch {
	case s9 || s19:
		return "srec", objfile.SRec16
	case s28:
		return "srec", objfile.SRec24
	case s37:
		return "srec", objfile.SRec32
	case binRaw:
		return "bin", 0
	case trsdos:
		return "trsdos", 0
	case cassette:
		return "trscassette", 0
	default:
		if fallback == "" {
			return "bin", 0
		}
		return fallback, objfile.SRec32
	}
}

// parseBinWindow parses -base's "base[-end]" syntax.
func parseBinWindow(window string) (base, end uint32, hasEnd bool) {
	if window == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(window, "-", 2)
	base = parseUint32(parts[0])
	if len(parts) == 2 {
		end = parseUint32(parts[1])
		hasEnd = true
	}
	return base, end, hasEnd
}

func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func newObjectSink(format string, w *os.File, base, end uint32, hasEnd bool, srecType objfile.SRecordType, trsdosReclen, cassReclen int, name string) (pass.ObjectSink, error) {
	switch format {
	case "bin":
		return objfile.NewBinary(w, base, end, hasEnd), nil
	case "ihex":
		return objfile.NewIntelHex(w), nil
	case "srec":
		return objfile.NewSRecord(w, srecType), nil
	case "trsdos":
		return objfile.NewTRSDOS(w, name, trsdosReclen), nil
	case "trscassette":
		return objfile.NewTRSCassette(w, name, cassReclen), nil
	default:
		return nil, fmt.Errorf("unknown object format %q", format)
	}
}

func defaultObjectName(srcFile, format string) string {
	base := strings.TrimSuffix(srcFile, filepath.Ext(srcFile))
	switch format {
	case "ihex":
		return base + ".hex"
	case "srec":
		return base + ".s19"
	case "trsdos":
		return base + ".cmd"
	case "trscassette":
		return base + ".cas"
	default:
		return base + ".bin"
	}
}

type sourceLine struct {
	pos  diag.Position
	text string
}

func xrefLines(content, filename string) []sourceLine {
	raw := strings.Split(content, "\n")
	lines := make([]sourceLine, len(raw))
	for i, text := range raw {
		lines[i] = sourceLine{pos: diag.Position{Filename: filename, Line: i + 1}, text: text}
	}
	return lines
}

func xrefSourceLines(lines []sourceLine) []xref.SourceLine {
	out := make([]xref.SourceLine, len(lines))
	for i, l := range lines {
		out[i] = xref.SourceLine{Pos: l.pos, Text: l.text}
	}
	return out
}

func lintLines(lines []sourceLine) []lint.SourceLine {
	out := make([]lint.SourceLine, len(lines))
	for i, l := range lines {
		out[i] = lint.SourceLine{Pos: l.pos, Text: l.text}
	}
	return out
}

func printHelp() {
	fmt.Printf(`asmx %s - retargetable cross-assembler

Usage: asmx [options] srcfile
       asmx -serve [-port N]

Options:
  -help              Show this help message
  -version           Show version information
  -e                 Errors to stderr
  -w                 Warnings to stderr
  -1                 Write a listing to <src>.lst (pass-1 diagnostics not listed)
  -l file            Listing file
  -o file            Object file (default by format)
  -d NAME[:]=VALUE   Predefine symbol (':=' -> SET, '=' -> EQU), repeatable
  -s9 | -s19 | -s28 | -s37   S-record, 16/16/24/32-bit addresses
  -b                 Raw binary output
  -base base[-end]   Address window for -b
  -t                 TRSDOS /CMD output (implies default CPU Z80)
  -treclen N         TRSDOS /CMD record length (default 256)
  -T                 TRS-80 cassette output (implies default CPU Z80)
  -Treclen N         TRS-80 cassette record length (default 256)
  -c                 Object to stdout (mutually exclusive with -o and -b)
  -C cpu             Default CPU type

Tooling:
  -format            Reformat srcfile's columns and print to stdout
  -lint              Run static checks after assembling
  -xref              Print a cross-reference report after assembling
  -browse            Open the read-only listing/symbol browser after assembly
  -serve             Start the HTTP assemble service (see -port)

Examples:
  asmx -C 6502 -o hello.bin hello.asm
  asmx -s19 -o hello.s19 hello.asm
  asmx -lint hello.asm
  asmx -serve -port 8080
`, Version)
}
