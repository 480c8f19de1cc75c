package render

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

func mainFrameNavigated(url string, loader cdp.LoaderID) *page.EventFrameNavigated {
	return &page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", LoaderID: loader, URL: url}}
}

func lifecycle(name string, loader cdp.LoaderID) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: "main", LoaderID: loader, Name: name}
}

func TestIdleGateIgnoresBlankTarget(t *testing.T) {
	g := &idleGate{}

	if g.observe(lifecycle("networkIdle", "blank")) {
		t.Fatal("idle before any committed navigation must not pass")
	}
	g.observe(mainFrameNavigated("about:blank", "blank"))
	if g.observe(lifecycle("networkIdle", "blank")) {
		t.Fatal("the browser's initial blank document must not satisfy the wait")
	}

	g.observe(mainFrameNavigated("https://example.com/player", "nav-1"))
	if g.observe(lifecycle("networkIdle", "blank")) {
		t.Fatal("a stale loader must not satisfy the wait")
	}
	if g.observe(lifecycle("load", "nav-1")) {
		t.Fatal("only networkIdle may satisfy the wait")
	}
	if !g.observe(lifecycle("networkIdle", "nav-1")) {
		t.Fatal("idle for the committed navigation should pass")
	}
}

func TestIdleGateIgnoresSubframes(t *testing.T) {
	g := &idleGate{}
	g.observe(mainFrameNavigated("https://example.com/player", "nav-1"))
	g.observe(&page.EventFrameNavigated{
		Frame: &cdp.Frame{ID: "child", ParentID: "main", LoaderID: "iframe-1", URL: "https://ads.example.com"},
	})
	if g.observe(lifecycle("networkIdle", "iframe-1")) {
		t.Fatal("a subframe navigation must not re-arm the gate")
	}
	if !g.observe(lifecycle("networkIdle", "nav-1")) {
		t.Fatal("the main frame's idle should still pass")
	}
}

func TestIdleGateFollowsRedirects(t *testing.T) {
	g := &idleGate{}
	g.observe(mainFrameNavigated("https://example.com/player", "nav-1"))
	g.observe(mainFrameNavigated("https://cdn.example.com/player", "nav-2"))
	if g.observe(lifecycle("networkIdle", "nav-1")) {
		t.Fatal("idle from before the redirect must not pass")
	}
	if !g.observe(lifecycle("networkIdle", "nav-2")) {
		t.Fatal("idle for the final destination should pass")
	}
}
