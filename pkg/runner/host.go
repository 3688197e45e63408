package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TerminalHost is a HostPage whose compose box is the terminal.
type TerminalHost struct {
	mu       sync.Mutex
	w        io.Writer
	renderer ContentRenderer
	sample   ports.Sample
	compose  string
}

var _ ports.HostPage = (*TerminalHost)(nil)

// NewTerminalHost creates a host printing drafts to w.
func NewTerminalHost(w io.Writer, renderer ContentRenderer) *TerminalHost {
	return &TerminalHost{w: w, renderer: renderer}
}

// Receive records a customer message as the newest incoming one.
func (h *TerminalHost) Receive(conversationID, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sample = ports.Sample{
		Title:          conversationID,
		LatestIncoming: text,
		RecentText:     strings.TrimSpace(h.sample.RecentText + "\n" + text),
	}
}

// Sample returns what the terminal "page" currently shows.
func (h *TerminalHost) Sample(ctx context.Context) (ports.Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sample, nil
}

// InsertDraft prints the draft. Nothing is ever sent.
func (h *TerminalHost) InsertDraft(ctx context.Context, d domain.Draft) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compose = d.Text

	output := d.Text
	if h.renderer != nil {
		if rendered, err := h.renderer(d.Text); err == nil {
			output = rendered
		}
	}
	fmt.Fprintf(h.w, "\n[draft:%s]\n%s\n", d.Source, strings.TrimSpace(output))
	return nil
}

// ClearCompose empties the compose box.
func (h *TerminalHost) ClearCompose(ctx context.Context, conversationID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compose = ""
	fmt.Fprintln(h.w, "[compose cleared]")
	return nil
}

// Compose returns the text currently in the compose box.
func (h *TerminalHost) Compose() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compose
}
