package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"webcast/internal/audio"
	"webcast/internal/config"
	"webcast/internal/display"
	"webcast/internal/logging"
	"webcast/internal/poll"
	"webcast/internal/publish"
	"webcast/internal/render"
)

// step is one setup stage: acquire returns the matching release, which lands
// on the teardown stack only after the stage succeeded.
type step struct {
	name    string
	state   State
	acquire func(ctx context.Context) (func(), error)
}

// Orchestrator owns one capture session end to end.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	displays  *display.Manager
	router    *audio.Router
	renderer  *render.Controller
	publisher *publish.Publisher

	mu       sync.Mutex
	state    State
	releases []func()

	surface       *display.Surface
	route         *audio.Route
	renderSession *render.Session
}

// New constructs an orchestrator with live components.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "session"),
		displays:  display.NewManager(cfg, logger),
		router:    audio.NewRouter(cfg, logger),
		renderer:  render.NewController(cfg, logger),
		publisher: publish.NewPublisher(cfg, logger),
		state:     StateIdle,
	}
}

// State returns the current session phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		o.logger.Info("session state",
			logging.String("from", string(prev)),
			logging.String("to", string(s)),
		)
	}
}

// Run brings the session up, then blocks until the transcoder ends or ctx is
// cancelled. On any exit path everything acquired is torn down.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.publisher.OnRetry = func() { o.setState(StateRetrying) }
	o.publisher.OnRecovered = func() { o.setState(StatePublishing) }

	if err := o.acquire(ctx, o.buildSteps()); err != nil {
		o.Stop()
		if ctx.Err() != nil {
			// Interrupted mid-setup; that is a clean stop, not a failure.
			o.setState(StateStopped)
			return nil
		}
		o.setState(StateFailed)
		return err
	}

	select {
	case <-ctx.Done():
		o.logger.Info("shutdown requested")
		o.Stop()
		o.setState(StateStopped)
		return nil
	case <-o.publisher.Done():
		err := o.publisher.Err()
		o.Stop()
		if err != nil {
			o.setState(StateFailed)
			return err
		}
		o.setState(StateStopped)
		return nil
	}
}

// acquire runs the steps in order, pushing each release onto the teardown
// stack as its stage succeeds.
func (o *Orchestrator) acquire(ctx context.Context, steps []step) error {
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		release, err := st.acquire(ctx)
		if err != nil {
			o.logger.Error("session setup failed",
				logging.String("stage", st.name),
				logging.Error(err),
			)
			return err
		}
		o.mu.Lock()
		if release != nil {
			o.releases = append(o.releases, release)
		}
		o.mu.Unlock()
		o.setState(st.state)
	}
	return nil
}

func (o *Orchestrator) buildSteps() []step {
	return []step{
		{
			name:  "display",
			state: StateDisplayUp,
			acquire: func(ctx context.Context) (func(), error) {
				surface, err := o.displays.Acquire(ctx, o.cfg.Capture.RenderWidth, o.cfg.Capture.RenderHeight)
				if err != nil {
					return nil, err
				}
				o.surface = surface
				return surface.Release, nil
			},
		},
		{
			name:  "audio",
			state: StateAudioRouted,
			acquire: func(ctx context.Context) (func(), error) {
				route, err := o.router.Establish(ctx)
				if err != nil {
					return nil, err
				}
				o.route = route
				// Teardown runs off the session context, which is
				// usually already cancelled by then.
				return func() { o.router.Teardown(context.Background()) }, nil
			},
		},
		{
			name:  "render",
			state: StateRenderReady,
			acquire: func(ctx context.Context) (func(), error) {
				rs, err := o.renderer.Open(ctx, o.surface)
				if err != nil {
					return nil, err
				}
				o.renderSession = rs
				rs.Interact(ctx, o.cfg.Interaction)
				return rs.Close, nil
			},
		},
		{
			name:  "publish",
			state: StatePublishing,
			acquire: func(ctx context.Context) (func(), error) {
				// Best effort: a stream with video but unconverged audio
				// still beats holding the whole session hostage.
				if err := o.router.Converge(ctx); err != nil {
					if errors.Is(err, poll.ErrExhausted) {
						o.logger.Warn("audio inputs did not converge; publishing anyway")
					} else {
						return nil, err
					}
				}
				if err := o.publisher.Start(ctx, o.surface.Display, o.route.Monitor); err != nil {
					return nil, err
				}
				return o.publisher.Stop, nil
			},
		},
	}
}

// Stop tears down everything acquired so far in reverse order. Safe from any
// state and safe to call repeatedly.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	releases := o.releases
	o.releases = nil
	o.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
