package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"webcast/internal/config"
	"webcast/internal/logging"
	"webcast/internal/process"
	"webcast/internal/services"
)

const stopGrace = 5 * time.Second

// Proc is the slice of process.Handle the supervisor needs; tests substitute
// scripted fakes.
type Proc interface {
	Pid() int
	Done() <-chan struct{}
	Exit() (process.ExitState, int)
	Diagnostics() string
	Terminate(grace time.Duration)
}

// Spawner launches the transcoder process.
type Spawner func(spec process.Spec) (Proc, error)

// Publisher owns the transcoder lifecycle for one session.
type Publisher struct {
	cfg    *config.Config
	logger *slog.Logger
	spawn  Spawner

	// OnRetry, when set, is called once if the transcoder is relaunched
	// with silent audio. The session uses it to surface the Retrying state.
	OnRetry func()
	// OnRecovered, when set, is called once the silent-audio relaunch is
	// running, so the session can report Publishing again.
	OnRecovered func()

	mu      sync.Mutex
	current Proc
	stopped bool
	retried bool

	done chan struct{}
	err  error
}

// Option configures the publisher.
type Option func(*Publisher)

// WithSpawner injects a custom transcoder spawner (primarily for tests).
func WithSpawner(spawn Spawner) Option {
	return func(p *Publisher) {
		if spawn != nil {
			p.spawn = spawn
		}
	}
}

// NewPublisher constructs a transcoder supervisor.
func NewPublisher(cfg *config.Config, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "publish"),
		spawn: func(spec process.Spec) (Proc, error) {
			return process.Spawn(spec)
		},
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the transcoder and confirms it survives the configured
// confirmation window, then hands supervision to a background monitor.
// A nonzero exit inside the window consumes the session's single
// silent-audio retry, exactly as a later mid-stream exit would; only the
// retry failing too is terminal. display is the X display to grab; monitor
// is the pulse source to record.
func (p *Publisher) Start(ctx context.Context, display, monitor string) error {
	handle, err := p.launch(display, monitor, false)
	if err != nil {
		return services.Wrap(services.ErrSetup, "publish", "start transcoder", "spawn ffmpeg", err)
	}

	survived, err := p.confirm(ctx, handle)
	if err != nil {
		return err
	}
	if !survived {
		state, code := handle.Exit()
		if state == process.ExitedKilled || code == 0 {
			return services.Wrap(services.ErrSetup, "publish", "confirm",
				fmt.Sprintf("transcoder ended inside the confirmation window: %s", handle.Diagnostics()), nil)
		}

		retry, err := p.beginRetry(display, monitor, code, handle)
		if err != nil {
			return err
		}
		survived, err = p.confirm(ctx, retry)
		if err != nil {
			return err
		}
		if !survived {
			_, retryCode := retry.Exit()
			return services.Wrap(services.ErrTerminal, "publish", "confirm",
				fmt.Sprintf("transcoder failed twice, last exit code %d: %s; first attempt: %s",
					retryCode, retry.Diagnostics(), handle.Diagnostics()), nil)
		}
		if p.OnRecovered != nil {
			p.OnRecovered()
		}
		handle = retry
	}

	p.mu.Lock()
	p.current = handle
	p.mu.Unlock()

	go p.supervise(display, monitor, handle)
	return nil
}

func (p *Publisher) launch(display, monitor string, silent bool) (Proc, error) {
	args := BuildArgs(p.cfg, display, monitor, silent)
	p.logger.Info("starting transcoder",
		logging.String("endpoint", p.cfg.Stream.PublishURL),
		logging.Bool("silent_audio", silent),
	)
	return p.spawn(process.Spec{
		Name:   "ffmpeg",
		Binary: "ffmpeg",
		Args:   args,
		OnLine: p.inspectLine,
	})
}

// inspectLine surfaces transcoder output lines matching a configured error
// marker at warn level; everything else stays at debug.
func (p *Publisher) inspectLine(line string) {
	lower := strings.ToLower(line)
	for _, marker := range p.cfg.Publish.ErrorMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			p.logger.Warn("transcoder output", logging.String("line", line))
			return
		}
	}
	p.logger.Debug("transcoder output", logging.String("line", line))
}

// confirm reports whether the transcoder survived the confirmation window.
// The error return is reserved for ctx cancellation.
func (p *Publisher) confirm(ctx context.Context, handle Proc) (bool, error) {
	window := time.Duration(p.cfg.Publish.ConfirmWindow) * time.Second
	if window <= 0 {
		return true, nil
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-handle.Done():
		return false, nil
	case <-ctx.Done():
		handle.Terminate(stopGrace)
		return false, ctx.Err()
	case <-timer.C:
		p.logger.Info("transcoder confirmed", logging.Int("pid", handle.Pid()))
		return true, nil
	}
}

// beginRetry marks the single retry as consumed and relaunches the
// transcoder with silent audio.
func (p *Publisher) beginRetry(display, monitor string, code int, failed Proc) (Proc, error) {
	p.mu.Lock()
	p.retried = true
	p.mu.Unlock()

	p.logger.Warn("transcoder exited; retrying once with silent audio",
		logging.Int("exit_code", code),
		logging.String("diagnostics", failed.Diagnostics()),
	)
	if p.OnRetry != nil {
		p.OnRetry()
	}

	retry, err := p.launch(display, monitor, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTerminal, "publish", "retry",
			"relaunching transcoder with silent audio: "+failed.Diagnostics(), err)
	}
	return retry, nil
}

// supervise waits for the transcoder to exit and applies the retry policy:
// a nonzero, non-killed exit gets one silent-audio relaunch, anything else
// ends supervision cleanly.
func (p *Publisher) supervise(display, monitor string, handle Proc) {
	<-handle.Done()

	state, code := handle.Exit()

	p.mu.Lock()
	if p.stopped || state == process.ExitedKilled || code == 0 {
		// Deliberate teardown or a clean end of stream; not a failure.
		p.finishLocked(nil)
		p.mu.Unlock()
		return
	}
	alreadyRetried := p.retried
	p.mu.Unlock()

	if alreadyRetried {
		p.finish(services.Wrap(services.ErrTerminal, "publish", "supervise",
			fmt.Sprintf("transcoder failed twice, last exit code %d: %s", code, handle.Diagnostics()), nil))
		return
	}

	retry, err := p.beginRetry(display, monitor, code, handle)
	if err != nil {
		p.finish(err)
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		retry.Terminate(stopGrace)
		p.finish(nil)
		return
	}
	p.current = retry
	p.mu.Unlock()

	if p.OnRecovered != nil {
		p.OnRecovered()
	}

	<-retry.Done()
	retryState, retryCode := retry.Exit()

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped || retryState == process.ExitedKilled || retryCode == 0 {
		p.finish(nil)
		return
	}
	p.finish(services.Wrap(services.ErrTerminal, "publish", "supervise",
		fmt.Sprintf("transcoder failed twice, last exit code %d: %s; first attempt: %s",
			retryCode, retry.Diagnostics(), handle.Diagnostics()), nil))
}

func (p *Publisher) finish(err error) {
	p.mu.Lock()
	p.finishLocked(err)
	p.mu.Unlock()
}

func (p *Publisher) finishLocked(err error) {
	select {
	case <-p.done:
	default:
		p.err = err
		close(p.done)
	}
}

// Done is closed once supervision ends, deliberately or terminally.
func (p *Publisher) Done() <-chan struct{} { return p.done }

// Err reports why supervision ended. Nil after a deliberate Stop.
func (p *Publisher) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop terminates the transcoder. Idempotent; the supervisor treats the
// resulting exit as deliberate.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	current := p.current
	p.mu.Unlock()

	if current != nil {
		p.logger.Info("stopping transcoder", logging.Int("pid", current.Pid()))
		current.Terminate(stopGrace)
	} else {
		p.finish(nil)
	}
}
