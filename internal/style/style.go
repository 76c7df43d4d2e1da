// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	// Success style for positive outcomes (green).
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	// Warning style for cautionary messages (yellow).
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)

	// Error style for failures (red).
	Error = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	// Info style for informational messages (blue).
	Info = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	// Dim style for secondary information (gray).
	Dim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// Bold style for emphasis.
	Bold = lipgloss.NewStyle().Bold(true)

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("→")
)

// PrintWarning prints a warning message with consistent formatting.
func PrintWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

// PrintError prints an error message with consistent formatting.
func PrintError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", ErrorPrefix, fmt.Sprintf(format, args...))
}

// PrintSuccess prints a success message with consistent formatting.
func PrintSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", SuccessPrefix, fmt.Sprintf(format, args...))
}

// RenderMarkdown renders a mail message body with glamour styling for
// terminal display, word-wrapped to the given width. Returns the raw
// markdown unchanged if rendering fails, so a malformed body never
// blanks out the feed.
func RenderMarkdown(markdown string, width int) string {
	if width <= 0 {
		width = terminalWidth()
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}

// terminalWidth reports the width of stdout's terminal, capped for
// readability, falling back to 80 columns when stdout isn't a tty.
func terminalWidth() int {
	const (
		defaultWidth = 80
		maxWidth     = 100
	)
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}
