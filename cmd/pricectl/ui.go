package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI provides user-friendly terminal output. In JSON mode only JSON reaches stdout.
type UI struct {
	out      io.Writer
	err      io.Writer
	jsonMode bool
}

// NewUI creates a UI writing results to out and progress to errOut.
func NewUI(out, errOut io.Writer, jsonMode bool) *UI {
	return &UI{out: out, err: errOut, jsonMode: jsonMode}
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgYellow).Fprintf(ui.err, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func (ui *UI) Info(format string, args ...any) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintf(ui.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Header prints a bold section title.
func (ui *UI) Header(title string) {
	if ui.jsonMode {
		return
	}
	color.New(color.Bold, color.FgCyan).Fprintf(ui.out, "\n%s\n", title)
}

// JSON writes v as indented JSON to stdout.
func (ui *UI) JSON(v any) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table returns a tabwriter over stdout; callers Flush it.
func (ui *UI) Table() *tabwriter.Writer {
	return tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)
}

// Spinner wraps a spinner for indeterminate work.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner with the given message on stderr.
func (ui *UI) NewSpinner(message string) *Spinner {
	opt := spinner.WithWriter(ui.err)
	if f, ok := ui.err.(*os.File); ok {
		opt = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, opt)
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the animation; a no-op outside a terminal.
func (s *Spinner) Start() { s.spinner.Start() }

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() { s.spinner.Stop() }

// NewProgressBar creates an epoch progress bar on stderr.
func (ui *UI) NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(ui.err),
		progressbar.OptionSetVisibility(!ui.jsonMode),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("epochs"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(ui.err)
		}),
	)
}

// usd formats a dollar amount.
func usd(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
