package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const domActionTimeout = 5 * time.Second

// chromedpDOM implements domActions against a live browser context. The
// caller's ctx only bounds the attempt; protocol calls must run on the
// browser context or chromedp cannot route them.
type chromedpDOM struct {
	ctx context.Context
}

func (d chromedpDOM) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(d.ctx, domActionTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() { stop(); cancel() }
}

func (d chromedpDOM) ClickSelector(ctx context.Context, selector string) error {
	runCtx, cancel := d.bound(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

const labelClickJS = `(() => {
	const needle = %q;
	const candidates = Array.from(document.querySelectorAll('button, [role="button"], a, input[type="button"], [aria-label], [title]'));
	const labelOf = (el) => ((el.getAttribute('aria-label') || '') + ' ' +
		(el.getAttribute('title') || '') + ' ' +
		(el.textContent || '')).toLowerCase();
	const hit = candidates.find((el) => labelOf(el).includes(needle));
	if (!hit) {
		return false;
	}
	hit.click();
	return true;
})()`

func (d chromedpDOM) ClickLabel(ctx context.Context, substring string) (bool, error) {
	runCtx, cancel := d.bound(ctx)
	defer cancel()
	var clicked bool
	script := fmt.Sprintf(labelClickJS, strings.ToLower(substring))
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

func (d chromedpDOM) ClickPoint(ctx context.Context, x, y float64) error {
	runCtx, cancel := d.bound(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.MouseClickXY(x, y))
}
