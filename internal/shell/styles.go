package shell

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	colorAccent = "39"  // blue
	colorGray   = "245" // secondary text
	colorBorder = "238"
	colorGreen  = "78"
	colorRed    = "196"
	colorYellow = "220"
)

// Styles holds the lipgloss styles used by the shell.
type Styles struct {
	Title   lipgloss.Style
	Menu    lipgloss.Style
	Key     lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style

	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
}

// DefaultStyles returns the coloured theme.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Menu:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorRed)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder)),

		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Padding(0, 1),
		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder)),
	}
}

// NoColorStyles returns styles without colour or emphasis.
func NoColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Menu:    lipgloss.NewStyle(),
		Key:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Header:  lipgloss.NewStyle().Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Border:  lipgloss.NewStyle(),
	}
}

// StylesFor picks the theme for w: colour only on a terminal and only when
// NO_COLOR is unset.
func StylesFor(w io.Writer) Styles {
	if IsTTY(w) && !DetectNoColor() {
		return DefaultStyles()
	}
	return NoColorStyles()
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR convention is in effect.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
