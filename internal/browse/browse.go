// Package browse implements a read-only tview/tcell viewer over an
// already-assembled listing and symbol table: paged listing, a filterable
// symbol list, and jump-to-definition between them.
//
// Grounded in the teacher's debugger/tui.go panel layout and key bindings,
// with the live-stepping surface removed: this assembler never executes
// code (spec.md has no linker, no debug-info emission, and by omission no
// emulation), so there is no running CPU/registers/stack/breakpoints to
// show. What carries over is the browsing shell — a source/listing panel,
// a symbol panel, and a command line — reworked to browse the static
// output of one already-completed assembly instead of a live VM.
package browse

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/crossasm/asmx/internal/xref"
)

// Browser is the top-level application: a listing panel, a symbol panel,
// and a command input wired together the way debugger/tui.go's TUI struct
// wires its panels.
type Browser struct {
	App   *tview.Application
	Pages *tview.Pages

	MainLayout *tview.Flex

	ListingView *tview.TextView
	SymbolView  *tview.List
	CommandLine *tview.InputField
	StatusLine  *tview.TextView

	listingLines []string
	report       *xref.Report

	symbolFilter string
}

// New builds a Browser over listing (the full rendered listing text, one
// line per source line, as internal/listing.Writer produces it) and report
// (the symbol cross-reference a completed assembly left behind).
func New(listing string, report *xref.Report) *Browser {
	b := &Browser{
		App:          tview.NewApplication(),
		listingLines: strings.Split(listing, "\n"),
		report:       report,
	}
	b.initializeViews()
	b.buildLayout()
	b.setupKeyBindings()
	b.refreshSymbolView()
	return b
}

func (b *Browser) initializeViews() {
	b.ListingView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	b.ListingView.SetBorder(true).SetTitle(" Listing ")
	b.ListingView.SetText(strings.Join(b.listingLines, "\n"))

	b.SymbolView = tview.NewList().ShowSecondaryText(true)
	b.SymbolView.SetBorder(true).SetTitle(" Symbols ")
	b.SymbolView.SetSelectedFunc(func(i int, name string, value string, shortcut rune) {
		b.jumpToSymbol(name)
	})

	b.StatusLine = tview.NewTextView().SetDynamicColors(true)
	b.StatusLine.SetText("[yellow]/[white] grep symbols   [yellow]g[white] jump to line   [yellow]Ctrl-C[white] quit")

	b.CommandLine = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	b.CommandLine.SetBorder(true).SetTitle(" Command ")
	b.CommandLine.SetDoneFunc(b.handleCommand)
}

func (b *Browser) buildLayout() {
	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(b.ListingView, 0, 3, false).
		AddItem(b.SymbolView, 0, 1, false)

	b.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(content, 0, 5, false).
		AddItem(b.StatusLine, 1, 0, false).
		AddItem(b.CommandLine, 3, 0, true)

	b.Pages = tview.NewPages().AddPage("main", b.MainLayout, true, true)
}

func (b *Browser) setupKeyBindings() {
	b.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			b.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			b.ListingView.ScrollToBeginning()
			return nil
		}
		if event.Rune() == '/' && b.App.GetFocus() != b.CommandLine {
			b.App.SetFocus(b.CommandLine)
			b.CommandLine.SetText("/")
			return nil
		}
		if event.Rune() == 'g' && b.App.GetFocus() != b.CommandLine {
			b.App.SetFocus(b.CommandLine)
			b.CommandLine.SetText("g ")
			return nil
		}
		return event
	})
}

// handleCommand dispatches a line typed into the command input: "/term"
// filters the symbol panel by substring, "g N" jumps the listing panel to
// line N, and a bare name jumps to that symbol's definition.
func (b *Browser) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := strings.TrimSpace(b.CommandLine.GetText())
	b.CommandLine.SetText("")
	b.App.SetFocus(b.ListingView)
	if cmd == "" {
		return
	}

	switch {
	case strings.HasPrefix(cmd, "/"):
		b.symbolFilter = strings.ToUpper(strings.TrimPrefix(cmd, "/"))
		b.refreshSymbolView()
	case strings.HasPrefix(cmd, "g "):
		var line int
		if _, err := fmt.Sscanf(strings.TrimPrefix(cmd, "g "), "%d", &line); err == nil {
			b.jumpToLine(line)
		}
	default:
		b.jumpToSymbol(strings.ToUpper(cmd))
	}
}

// refreshSymbolView repopulates the symbol panel from the cross-reference
// report, filtered by the active grep substring (if any).
func (b *Browser) refreshSymbolView() {
	b.SymbolView.Clear()
	if b.report == nil {
		return
	}
	for _, e := range b.report.Entries {
		if b.symbolFilter != "" && !strings.Contains(e.Name, b.symbolFilter) {
			continue
		}
		secondary := fmt.Sprintf("0x%X, %d refs", uint32(e.Value), len(e.References))
		if !e.Defined {
			secondary = "undefined"
		}
		b.SymbolView.AddItem(e.Name, secondary, 0, nil)
	}
}

// jumpToSymbol scrolls the listing panel to name's definition line, if it
// has one.
func (b *Browser) jumpToSymbol(name string) {
	if b.report == nil {
		return
	}
	for _, e := range b.report.Entries {
		if e.Name == name && e.Defined {
			b.jumpToLine(e.DefPos.Line)
			return
		}
	}
}

// jumpToLine scrolls the listing panel so line is visible, highlighting it.
func (b *Browser) jumpToLine(line int) {
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.listingLines) {
		idx = len(b.listingLines) - 1
	}
	b.ListingView.ScrollTo(idx, 0)
}

// Run starts the browser's event loop; it blocks until the user quits.
func (b *Browser) Run() error {
	return b.App.SetRoot(b.Pages, true).SetFocus(b.ListingView).Run()
}

// Stop ends the event loop, for use from outside the UI goroutine.
func (b *Browser) Stop() {
	b.App.Stop()
}
