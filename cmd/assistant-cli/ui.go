package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	progress *mpb.Progress
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI writing to out.
func NewUI(out io.Writer, jsonMode, noColor bool) *UI {
	var progress *mpb.Progress
	if !jsonMode && IsTerminal() {
		progress = mpb.New(mpb.WithWidth(48), mpb.WithOutput(out))
	}
	return &UI{
		out:      out,
		progress: progress,
		noColor:  noColor,
		jsonMode: jsonMode,
	}
}

// Close waits for progress bars to finish rendering.
func (ui *UI) Close() {
	if ui.progress != nil {
		ui.progress.Wait()
	}
}

func (ui *UI) printf(c *color.Color, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	if ui.noColor || c == nil {
		fmt.Fprintf(ui.out, format, args...)
		return
	}
	c.Fprintf(ui.out, format, args...)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.printf(color.New(color.FgGreen), "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.printf(color.New(color.FgRed), "✗ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.printf(color.New(color.FgCyan), "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.printf(color.New(color.FgBlue), "→ %s\n", fmt.Sprintf(format, args...))
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	ui.printf(color.New(color.FgYellow), "  %s: ", key)
	ui.printf(nil, "%v\n", value)
}

// Newline prints a newline.
func (ui *UI) Newline() {
	ui.printf(nil, "\n")
}

// Prompt prints the input prompt.
func (ui *UI) Prompt() {
	ui.printf(color.New(color.FgHiWhite, color.Bold), "you › ")
}

// Assistant prints an assistant message.
func (ui *UI) Assistant(text string) {
	ui.printf(color.New(color.FgMagenta, color.Bold), "assistant › ")
	ui.printf(nil, "%s\n", text)
}

// Products prints product results as a table.
func (ui *UI) Products(products []productRow) {
	if len(products) == 0 {
		return
	}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		stock := "in stock"
		if !p.InStock {
			stock = "out of stock"
		}
		discount := ""
		if p.Discount != nil && *p.Discount > 0 {
			discount = fmt.Sprintf("%.0f%%", *p.Discount)
		}
		rows = append(rows, []string{p.Name, fmt.Sprintf("$%.2f", p.Price), discount, p.Shop, stock})
	}
	ui.Table([]string{"Product", "Price", "Off", "Shop", "Stock"}, rows)
}

// Suggestions prints the follow-up suggestions on one line.
func (ui *UI) Suggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	ui.printf(color.New(color.Faint), "  try: %s\n", strings.Join(suggestions, " · "))
}

// Table prints a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	border := color.New(color.FgCyan, color.Bold)
	line := func(left, mid, right string) {
		ui.printf(border, "%s", left)
		for i, width := range widths {
			ui.printf(nil, "%s", strings.Repeat("─", width+2))
			if i < len(widths)-1 {
				ui.printf(border, "%s", mid)
			}
		}
		ui.printf(border, "%s\n", right)
	}
	row := func(cells []string) {
		ui.printf(border, "│")
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			ui.printf(nil, " %-*s ", widths[i], cell)
			ui.printf(border, "│")
		}
		ui.printf(nil, "\n")
	}

	line("┌", "┬", "┐")
	row(headers)
	line("├", "┼", "┤")
	for _, r := range rows {
		row(r)
	}
	line("└", "┴", "┘")
}

// ProgressBar creates a new progress bar, or nil when bars are disabled.
func (ui *UI) ProgressBar(name string, total int64) *mpb.Bar {
	if ui.progress == nil {
		return nil
	}

	return ui.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 8}), " done"),
		),
	)
}

// Spinner wraps a spinner for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// Spinner creates a spinner; it is inert in JSON mode or when stdout is not
// a terminal.
func (ui *UI) Spinner(message string) *Spinner {
	if ui.jsonMode || !IsTerminal() {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
