package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders drafts as markdown using glamour.
// It falls back to the raw text when the terminal renderer cannot be built.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(72),
	)
	if err != nil {
		return func(text string) (string, error) {
			return text, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
