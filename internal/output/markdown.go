package output

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const markdownWidth = 80

// RenderMarkdown renders a ticket description for the terminal. Plain text
// is returned when the renderer fails.
func RenderMarkdown(md string, width int) string {
	style := "dark"
	if !colorEnabled {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plainMarkdown(md)
	}
	out, err := r.Render(md)
	if err != nil {
		return plainMarkdown(md)
	}
	return out
}

func plainMarkdown(md string) string {
	return strings.TrimRight(md, "\n") + "\n"
}
