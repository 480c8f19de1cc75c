package render

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"webcast/internal/logging"
)

// enableAdmission turns on the fetch domain and answers every paused request
// with a verdict from blockRequest. Each verdict runs in its own goroutine
// because the DevTools event loop must not be blocked from inside a listener.
func enableAdmission(ctx context.Context, logger *slog.Logger) error {
	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			execCtx := cdp.WithExecutor(ctx, c.Target)
			if blockRequest(e.ResourceType, e.Request.URL) {
				logger.Debug("request blocked",
					logging.String("type", string(e.ResourceType)),
					logging.String("url", e.Request.URL),
				)
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				return
			}
			_ = fetch.ContinueRequest(e.RequestID).Do(execCtx)
		}()
	})
	return chromedp.Run(ctx, fetch.Enable())
}

// blockRequest decides admission for one request. Images never load; media
// loads only when the URL does not look like a video container, so audio
// streams survive. Everything else passes.
func blockRequest(kind network.ResourceType, rawURL string) bool {
	switch kind {
	case network.ResourceTypeImage:
		return true
	case network.ResourceTypeMedia:
		return looksLikeVideo(rawURL)
	default:
		return false
	}
}

func looksLikeVideo(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(parsed.Path)) {
	case ".mp4", ".m4v", ".webm", ".mkv", ".avi", ".mov", ".mpg", ".mpeg":
		return true
	}
	return false
}
