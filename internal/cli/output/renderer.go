// Package output renders command results as styled tables, plain text,
// or JSON. The mode adapts to the environment: styled output on a
// terminal, plain text when piped, JSON when requested.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Styles holds the lipgloss styles used for rendering.
type Styles struct {
	Error   lipgloss.Style
	Warn    lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styled bool
	styles Styles
}

// NewRenderer creates a renderer. ModeAuto resolves to styled text on a
// TTY and plain text otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}

	styled := false
	if mode == ModeAuto {
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			styled = true
		}
		mode = ModeText
	}

	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styled: styled,
		styles: Styles{
			Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		},
	}
}

// JSON reports whether the renderer is in JSON mode.
func (r *Renderer) JSON() bool { return r.mode == ModeJSON }

// Styles returns the style set, for callers that compose their own lines.
func (r *Renderer) Styles() Styles { return r.styles }

// Printf writes a formatted line in text mode; JSON mode suppresses it.
func (r *Renderer) Printf(format string, args ...any) {
	if r.mode == ModeJSON {
		return
	}
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Errorf writes a formatted line to the error stream, styled on a TTY.
func (r *Renderer) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.styled {
		msg = r.styles.Error.Render(msg)
	}
	_, _ = fmt.Fprintln(r.errOut, msg)
}

// Successf writes a formatted success line in text mode.
func (r *Renderer) Successf(format string, args ...any) {
	if r.mode == ModeJSON {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if r.styled {
		msg = r.styles.Success.Render(msg)
	}
	_, _ = fmt.Fprintln(r.out, msg)
}

// Table renders a header and rows as a table in text mode.
func (r *Renderer) Table(header []string, rows [][]string) {
	if r.mode == ModeJSON {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	t.Render()
}

// Encode writes v as indented JSON. In text mode it is a no-op so
// commands can call it unconditionally after their text rendering.
func (r *Renderer) Encode(v any) error {
	if r.mode != ModeJSON {
		return nil
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
