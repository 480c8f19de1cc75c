package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"webcast/internal/config"
	"webcast/internal/logging"
)

const toggleSettle = 500 * time.Millisecond

// domActions is the minimal page surface the interaction strategies need.
// The chromedp-backed implementation lives in dom.go; tests substitute fakes.
type domActions interface {
	// ClickSelector clicks the first visible element matching a CSS selector.
	ClickSelector(ctx context.Context, selector string) error
	// ClickLabel clicks the first clickable element whose visible or
	// accessible label contains the substring. Returns false when no
	// element matched.
	ClickLabel(ctx context.Context, substring string) (bool, error)
	// ClickPoint dispatches a raw mouse click at page coordinates.
	ClickPoint(ctx context.Context, x, y float64) error
}

type strategy struct {
	name string
	run  func(ctx context.Context) (bool, error)
}

// Interact attempts to start playback on the open page. Failures are logged
// and never propagate: a page that autoplays needs no trigger at all.
func (s *Session) Interact(ctx context.Context, spec config.Interaction) {
	runInteraction(ctx, chromedpDOM{ctx: s.ctx}, spec, s.logger)
}

func runInteraction(ctx context.Context, dom domActions, spec config.Interaction, logger *slog.Logger) {
	strategies := buildStrategies(dom, spec)
	if len(strategies) == 0 {
		logger.Debug("no playback trigger configured")
		return
	}
	for _, strat := range strategies {
		clicked, err := strat.run(ctx)
		if err != nil {
			logger.Debug("playback trigger attempt failed",
				logging.String("strategy", strat.name),
				logging.Error(err),
			)
			continue
		}
		if !clicked {
			continue
		}
		logger.Info("playback trigger clicked", logging.String("strategy", strat.name))
		if delay := time.Duration(spec.PostClickDelayMS) * time.Millisecond; delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
		return
	}
	logger.Warn("no playback trigger found; relying on autoplay")
}

// buildStrategies assembles the attempt order: the configured selector and
// its quote-normalized variants, then a label search for a play control, then
// a pause-then-play toggle for pages already mid-playback, and finally the
// raw coordinate click if one is configured.
func buildStrategies(dom domActions, spec config.Interaction) []strategy {
	var list []strategy
	if sel := strings.TrimSpace(spec.Selector); sel != "" {
		for _, variant := range selectorVariants(sel) {
			v := variant
			list = append(list, strategy{
				name: "selector " + v,
				run: func(ctx context.Context) (bool, error) {
					if err := dom.ClickSelector(ctx, v); err != nil {
						return false, err
					}
					return true, nil
				},
			})
		}
		list = append(list, strategy{
			name: `label "play"`,
			run: func(ctx context.Context) (bool, error) {
				return dom.ClickLabel(ctx, "play")
			},
		})
		list = append(list, strategy{
			name: "pause/play toggle",
			run: func(ctx context.Context) (bool, error) {
				// A visible pause control means the page thinks it is
				// already playing; cycling it restarts the stream so the
				// capture picks it up from a clean state.
				paused, err := dom.ClickLabel(ctx, "pause")
				if err != nil || !paused {
					return false, err
				}
				select {
				case <-time.After(toggleSettle):
				case <-ctx.Done():
					return false, ctx.Err()
				}
				return dom.ClickLabel(ctx, "play")
			},
		})
	}
	if spec.HasClickPoint() {
		x, y := float64(spec.ClickX), float64(spec.ClickY)
		list = append(list, strategy{
			name: fmt.Sprintf("point (%d,%d)", spec.ClickX, spec.ClickY),
			run: func(ctx context.Context) (bool, error) {
				if err := dom.ClickPoint(ctx, x, y); err != nil {
					return false, err
				}
				return true, nil
			},
		})
	}
	return list
}

// selectorVariants returns the selector plus quote-swapped forms, covering
// configs where shell quoting mangled the original attribute quotes.
func selectorVariants(sel string) []string {
	variants := []string{sel}
	seen := map[string]struct{}{sel: {}}
	add := func(v string) {
		if _, dup := seen[v]; !dup && v != "" {
			seen[v] = struct{}{}
			variants = append(variants, v)
		}
	}
	if strings.Contains(sel, `"`) {
		add(strings.ReplaceAll(sel, `"`, `'`))
	}
	if strings.Contains(sel, `'`) {
		add(strings.ReplaceAll(sel, `'`, `"`))
	}
	add(strings.Trim(sel, `"'`))
	return variants
}
