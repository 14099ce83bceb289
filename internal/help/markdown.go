package help

import (
	"github.com/charmbracelet/glamour"

	"github.com/mobilechromeapps/apkpack/internal/ui"
)

// RenderMarkdown renders a report for the terminal. With colors disabled
// the plain-text style is used.
func RenderMarkdown(md string) (string, error) {
	style := glamour.WithAutoStyle()
	if ui.NoColor {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
