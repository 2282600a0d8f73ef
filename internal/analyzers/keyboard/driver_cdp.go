package keyboard

import (
	"context"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// activeElementJS snapshots the focused element and the computed styles the
// focus indicator check needs. Resolves to null when focus is on the body.
const activeElementJS = `(() => {
	const el = document.activeElement;
	if (!el || el === document.body || el === document.documentElement) {
		return null;
	}
	const cs = window.getComputedStyle(el);
	return {
		tagName: el.tagName.toLowerCase(),
		id: el.id || '',
		classes: Array.from(el.classList),
		outline: cs.outline,
		boxShadow: cs.boxShadow,
		border: cs.border,
	};
})()`

// Runner is the slice of a browser session the CDP driver needs.
type Runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
	Evaluate(ctx context.Context, expression string, out any) error
}

// CDPDriver drives a live chromedp session.
type CDPDriver struct {
	session Runner
}

// NewCDPDriver wraps a browser session as a traversal driver.
func NewCDPDriver(session Runner) *CDPDriver {
	return &CDPDriver{session: session}
}

// PressTab dispatches a raw Tab keydown/keyup pair through CDP, matching what
// a physical key press produces.
func (d *CDPDriver) PressTab(ctx context.Context) error {
	return d.session.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyRawDown).
			WithKey("Tab").
			WithCode("Tab").
			WithWindowsVirtualKeyCode(9).
			WithNativeVirtualKeyCode(9)
		if err := down.Do(ctx); err != nil {
			return err
		}
		up := input.DispatchKeyEvent(input.KeyUp).
			WithKey("Tab").
			WithCode("Tab").
			WithWindowsVirtualKeyCode(9).
			WithNativeVirtualKeyCode(9)
		return up.Do(ctx)
	}))
}

// ActiveElement reads the focused element snapshot, nil when focus has left
// the focusable set.
func (d *CDPDriver) ActiveElement(ctx context.Context) (*Element, error) {
	var el *Element
	if err := d.session.Evaluate(ctx, activeElementJS, &el); err != nil {
		return nil, err
	}
	return el, nil
}
