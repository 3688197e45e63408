package controller

import "sync"

// Editor is the draft editor overlay. Generation increases every time the
// text is replaced, so late rewrite results can tell they are stale.
type Editor struct {
	Text       string `json:"text"`
	Generation uint64 `json:"generation"`
}

type overlay struct {
	open bool
	Editor
}

type overlays struct {
	mu   sync.Mutex
	byID map[string]*overlay
}

func newOverlays() *overlays {
	return &overlays{byID: make(map[string]*overlay)}
}

func (o *overlays) get(id string) *overlay {
	ov, ok := o.byID[id]
	if !ok {
		ov = &overlay{}
		o.byID[id] = ov
	}
	return ov
}

// show opens the editor with text and returns the new generation.
func (o *overlays) show(id, text string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov := o.get(id)
	ov.open = true
	ov.Text = text
	ov.Generation++
	return ov.Generation
}

func (o *overlays) close(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov := o.get(id)
	ov.open = false
	ov.Generation++
}

func (o *overlays) current(id string) (Editor, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov := o.get(id)
	return ov.Editor, ov.open
}

// replaceIf swaps the text only when the editor is still open at generation
// gen. deliver runs under the overlay lock so no newer draft can slip in
// between the check and the host update; when it fails nothing changes.
func (o *overlays) replaceIf(id string, gen uint64, text string, deliver func() error) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov := o.get(id)
	if !ov.open || ov.Generation != gen {
		return false, nil
	}
	if err := deliver(); err != nil {
		return false, err
	}
	ov.Text = text
	ov.Generation++
	return true, nil
}
