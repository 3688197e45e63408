package controller

import (
	"context"
	"fmt"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// RewriteMode selects the bridge service.
type RewriteMode string

const (
	RewriteTranslate RewriteMode = "translate"
	RewriteRefine    RewriteMode = "refine"
)

// RewriteRequest asks for the editor text to be rewritten.
type RewriteRequest struct {
	Mode       RewriteMode `json:"mode"`
	SourceLang string      `json:"source_lang,omitempty"`
	TargetLang string      `json:"target_lang,omitempty"`
}

// RewriteResult reports how a rewrite ended. Applied is false when the call
// failed or the editor moved on before the result arrived.
type RewriteResult struct {
	Text    string
	Applied bool
	Err     error
}

// Rewrite sends the current editor text to the bridge in the background.
// The result replaces the editor text only if the editor is still open at
// the same generation; otherwise it is discarded. Failures leave the text
// unchanged. The returned channel receives exactly one result.
func (c *Controller) Rewrite(ctx context.Context, conv string, req RewriteRequest) (<-chan RewriteResult, error) {
	call, err := c.rewriteCall(req)
	if err != nil {
		return nil, err
	}

	ed, open := c.overlays.current(conv)
	if !open || ed.Text == "" {
		return nil, ErrEditorClosed
	}

	state, err := c.table.Get(ctx, conv)
	if err != nil {
		return nil, err
	}

	done := make(chan RewriteResult, 1)
	// Rewrites outlive the request that started them.
	bg := context.WithoutCancel(ctx)

	go func() {
		text, err := call(bg, ed.Text)
		if err != nil {
			c.logger.Warn("Rewrite failed", "conversation", conv, "mode", req.Mode, "err", err)
			done <- RewriteResult{Err: err}
			return
		}

		draft := domain.Draft{
			ConversationID: conv,
			FlowID:         state.FlowID,
			NodeID:         state.NodeID,
			Source:         domain.SourceRewrite,
			Text:           text,
		}
		applied, err := c.overlays.replaceIf(conv, ed.Generation, text, func() error {
			return c.host.InsertDraft(bg, draft)
		})
		if err != nil {
			done <- RewriteResult{Text: text, Err: err}
			return
		}
		if !applied {
			c.logger.Debug("Dropping stale rewrite", "conversation", conv, "generation", ed.Generation)
		}
		done <- RewriteResult{Text: text, Applied: applied}
	}()

	return done, nil
}

func (c *Controller) rewriteCall(req RewriteRequest) (func(context.Context, string) (string, error), error) {
	switch req.Mode {
	case RewriteTranslate:
		if c.translator == nil {
			return nil, fmt.Errorf("%w: translate", ErrBridgeUnavailable)
		}
		target := req.TargetLang
		if target == "" {
			target = "en"
		}
		return func(ctx context.Context, text string) (string, error) {
			return c.translator.Translate(ctx, text, req.SourceLang, target)
		}, nil
	case RewriteRefine:
		if c.refiner == nil {
			return nil, fmt.Errorf("%w: refine", ErrBridgeUnavailable)
		}
		return c.refiner.Refine, nil
	default:
		return nil, fmt.Errorf("unknown rewrite mode %q", req.Mode)
	}
}
