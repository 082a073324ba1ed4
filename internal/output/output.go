// Package output handles formatting CLI output as table, JSON, or compact.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (table).
	FormatAuto Format = iota
	// FormatJSON outputs JSON.
	FormatJSON
	// FormatTable outputs a human-readable table.
	FormatTable
	// FormatCompact outputs one-line-per-record compact format.
	FormatCompact
)

// EnvOutput names the environment variable that selects a default format.
const EnvOutput = "TICKETBOARD_OUTPUT"

// Detect returns the appropriate format based on flags and environment.
// Default is table when no explicit format is set.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	if compactFlag {
		return FormatCompact
	}
	if tableFlag {
		return FormatTable
	}

	switch os.Getenv(EnvOutput) {
	case "json":
		return FormatJSON
	case "compact", "oneline":
		return FormatCompact
	case "table":
		return FormatTable
	}

	return FormatTable
}

// ConfigureColor picks the colour profile for w. Colour is dropped when
// noColor is set, NO_COLOR is present, or w is not a colour terminal.
func ConfigureColor(w io.Writer, noColor bool) {
	out := termenv.NewOutput(w)
	profile := out.EnvColorProfile()
	if noColor || out.EnvNoColor() || profile == termenv.Ascii {
		DisableColor()
		lipgloss.SetColorProfile(termenv.Ascii)
		colorEnabled = false
		return
	}
	lipgloss.SetColorProfile(profile)
	colorEnabled = true
}

// colorEnabled is read by the markdown renderer to pick a style.
var colorEnabled = true
