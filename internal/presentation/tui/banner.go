package tui

import (
	"fmt"
	"io"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintBanner writes the simulator banner.
func PrintBanner(w io.Writer, flowName string) {
	p := termenv.ColorProfile()
	title := termenv.String(" Reply Assistant ").Bold().Foreground(p.Color("#ffffff")).Background(p.Color("#25d366"))
	sub := termenv.String(" simulating " + flowName).Foreground(p.Color("#128c7e"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s\n", title, sub)
	fmt.Fprintln(w, termenv.String("Type a customer reply, or /help for operator commands.").Faint())
	fmt.Fprintln(w)
}

// Status renders a conversation status with its color.
func Status(s domain.Status) string {
	p := termenv.ColorProfile()
	out := termenv.String(string(s))
	switch s {
	case domain.StatusActive:
		out = out.Foreground(p.Color("#818cf8"))
	case domain.StatusDrafted:
		out = out.Foreground(p.Color("#25d366"))
	default:
		out = out.Faint()
	}
	return out.String()
}
