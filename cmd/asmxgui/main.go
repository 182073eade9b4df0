package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

func main() {
	a := NewApp()

	if len(os.Args) > 1 {
		path := os.Args[1]
		data, err := os.ReadFile(path) // #nosec G304 -- user-supplied path on the command line
		if err != nil {
			fmt.Fprintf(os.Stderr, "asmxgui: cannot read %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := a.LoadSource(string(data), path); err != nil {
			fmt.Fprintf(os.Stderr, "asmxgui: %v\n", err)
		}
	}

	fyneApp := app.New()
	win := fyneApp.NewWindow("asmx browser")
	win.Resize(fyne.NewSize(1000, 700))
	win.SetContent(buildLayout(a))
	win.ShowAndRun()
}

// buildLayout lays out the source/listing pane on the left and the symbol
// table on the right, the same two-pane split as the teacher's gui/app.go
// window, rebuilt on fyne's container/widget API instead of wails.
func buildLayout(a *App) fyne.CanvasObject {
	listingView := widget.NewLabel(a.Listing)
	listingView.Wrapping = fyne.TextWrapOff
	left := container.NewVScroll(listingView)

	symbolList := widget.NewList(
		func() int { return len(a.Symbols) },
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewLabel(""), widget.NewLabel(""), widget.NewLabel(""))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			row := a.Symbols[id]
			box := obj.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(row.Name)
			box.Objects[1].(*widget.Label).SetText(row.Value)
			box.Objects[2].(*widget.Label).SetText(fmt.Sprintf("%d refs", row.Refs))
		},
	)

	status := widget.NewLabel(statusText(a))

	split := container.NewHSplit(left, symbolList)
	split.Offset = 0.7

	return container.NewBorder(nil, status, nil, nil, split)
}

func statusText(a *App) string {
	if a.Filename == "" {
		return "No file loaded. Run: asmxgui <source-file>"
	}
	if a.ErrorCount > 0 {
		return fmt.Sprintf("%s: %d error(s)", a.Filename, a.ErrorCount)
	}
	return fmt.Sprintf("%s: assembled cleanly, %d symbols", a.Filename, len(a.Symbols))
}
