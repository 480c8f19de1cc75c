package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"webcast/internal/config"
	"webcast/internal/display"
	"webcast/internal/logging"
	"webcast/internal/services"
)

// Controller launches render sessions.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewController constructs a render controller.
func NewController(cfg *config.Config, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "render"),
	}
}

// Session is an open page in a browser bound to the virtual display.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	browserCtx  context.CancelFunc
	allocCancel context.CancelFunc
	ctx         context.Context

	closeOnce sync.Once
}

// Open launches the browser against the acquired display, sizes the viewport
// to the render dimensions, and navigates to the configured page using the
// tier's wait strategy.
func (c *Controller) Open(ctx context.Context, surface *display.Surface) (*Session, error) {
	cfg := c.cfg
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.WindowSize(cfg.Capture.RenderWidth, cfg.Capture.RenderHeight),
		chromedp.Env("DISPLAY=" + surface.Display),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-features", "Translate,OptimizationHints,MediaRouter"),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("window-position", "0,0"),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("kiosk", true),
	}
	if cfg.Render.Binary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Render.Binary))
	}

	// The browser's lifetime is owned by the Session, not by the setup
	// context: timeouts apply per navigation step below.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	session := &Session{
		cfg:         cfg,
		logger:      c.logger,
		browserCtx:  browserCancel,
		allocCancel: allocCancel,
		ctx:         browserCtx,
	}

	if err := session.navigate(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

func (s *Session) navigate(ctx context.Context) error {
	cfg := s.cfg
	tier := cfg.QualityTier()

	navTimeout := time.Duration(cfg.Render.NavTimeout) * time.Second
	if tier == config.QualityLightweight {
		navTimeout = time.Duration(cfg.Render.LightweightNavTimeout) * time.Second

		if err := enableAdmission(s.ctx, s.logger); err != nil {
			s.logger.Warn("request admission unavailable; loading the full page", logging.Error(err))
		}
	}

	navCtx, cancel := context.WithTimeout(s.ctx, navTimeout)
	defer cancel()

	var idle chan struct{}
	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(cfg.Capture.RenderWidth), int64(cfg.Capture.RenderHeight)),
	}
	if tier == config.QualityStandard {
		idle = make(chan struct{}, 1)
		gate := &idleGate{}
		chromedp.ListenTarget(s.ctx, func(ev any) {
			if gate.observe(ev) {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		})
		actions = append(actions, page.SetLifecycleEventsEnabled(true))
	}
	actions = append(actions, chromedp.Navigate(cfg.Stream.PageURL))
	if tier == config.QualityLightweight {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	s.logger.Info("navigating",
		logging.String("url", cfg.Stream.PageURL),
		logging.String("tier", string(tier)),
		logging.Duration("timeout", navTimeout),
	)
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return services.Wrap(services.ErrSetup, "render", "navigate", "page did not become ready", err)
	}

	if tier == config.QualityStandard {
		select {
		case <-idle:
		case <-navCtx.Done():
			s.logger.Warn("network idle not reached before timeout; continuing with partial load")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Fixed settle delay so late layout shifts and initial buffering finish
	// before capture starts.
	settle := time.Duration(cfg.Render.SettleDelay) * time.Second
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Info("page ready")
	return nil
}

// idleGate admits networkIdle lifecycle events only for the navigation this
// session committed. The fresh browser target emits lifecycle events for its
// initial blank document too, and those must not satisfy the wait.
type idleGate struct {
	mu     sync.Mutex
	loader cdp.LoaderID
}

// observe reports whether ev is a networkIdle event for the committed
// navigation. A main-frame navigation to a real URL re-arms the gate, so a
// redirect chain resolves to its final loader.
func (g *idleGate) observe(ev any) bool {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame.ParentID == "" && e.Frame.URL != "" && e.Frame.URL != "about:blank" {
			g.mu.Lock()
			g.loader = e.Frame.LoaderID
			g.mu.Unlock()
		}
	case *page.EventLifecycleEvent:
		if e.Name != "networkIdle" {
			return false
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.loader != "" && e.LoaderID == g.loader
	}
	return false
}

// Close shuts the browser down. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("closing renderer")
		s.browserCtx()
		s.allocCancel()
	})
}
