package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"webcast/internal/config"
	"webcast/internal/logging"
	"webcast/internal/poll"
	"webcast/internal/process"
	"webcast/internal/services"
)

const daemonGrace = 3 * time.Second

// Route is the established audio path: a null sink all session audio lands
// in, plus the loopback modules feeding it from pre-existing sources.
type Route struct {
	Sink        string
	Monitor     string
	SinkModule  string
	Loopbacks   []string
	DefaultSink bool
}

// Router owns the session's audio daemon interaction.
type Router struct {
	cfg    *config.Config
	logger *slog.Logger
	exec   Executor
	spawn  func(process.Spec) (*process.Handle, error)

	mu          sync.Mutex
	runtimeDir  string
	env         []string
	daemon      *process.Handle
	route       *Route
	prevDefault string
}

// Option configures the router.
type Option func(*Router)

// WithExecutor injects a custom pactl executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Router) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithSpawner injects a custom daemon spawner (primarily for tests).
func WithSpawner(spawn func(process.Spec) (*process.Handle, error)) Option {
	return func(r *Router) {
		if spawn != nil {
			r.spawn = spawn
		}
	}
}

// NewRouter constructs an audio router.
func NewRouter(cfg *config.Config, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "audio"),
		exec:   commandExecutor{binary: "pactl"},
		spawn:  process.Spawn,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Establish ensures a reachable daemon, creates the session sink, makes it
// the default, and loops existing sources into it. Re-invoking after a sink
// loss rebuilds the route from scratch.
func (r *Router) Establish(ctx context.Context) (*Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureDaemonLocked(ctx); err != nil {
		return nil, err
	}
	r.dropRouteLocked(ctx)

	sink := r.cfg.Audio.SinkName
	out, err := r.exec.Run(ctx, r.env,
		"load-module", "module-null-sink",
		"sink_name="+sink,
		"sink_properties=device.description=webcast-capture",
	)
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "audio", "create sink", "load null sink module", err)
	}
	route := &Route{
		Sink:       sink,
		Monitor:    sink + ".monitor",
		SinkModule: strings.TrimSpace(out),
	}
	r.logger.Info("null sink created", logging.String("sink", sink), logging.String("module", route.SinkModule))

	if prev, err := r.exec.Run(ctx, r.env, "get-default-sink"); err == nil {
		r.prevDefault = strings.TrimSpace(prev)
	}
	if _, err := r.exec.Run(ctx, r.env, "set-default-sink", sink); err != nil {
		r.unloadModuleLocked(ctx, route.SinkModule)
		return nil, services.Wrap(services.ErrSetup, "audio", "set default sink", "new streams would not attach to the session sink", err)
	}
	route.DefaultSink = true

	// Streams that began playing before the sink became default stay on
	// their original device; a loopback from each existing source pulls
	// that audio in too.
	route.Loopbacks = r.loopExistingSourcesLocked(ctx, route)

	r.route = route
	return route, nil
}

func (r *Router) ensureDaemonLocked(ctx context.Context) error {
	if r.pingLocked(ctx) {
		return nil
	}
	if r.env == nil {
		dir := filepath.Join(r.cfg.Audio.RuntimeDirBase, "pulse-"+uuid.NewString()[:8])
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return services.Wrap(services.ErrSetup, "audio", "runtime dir", "create daemon runtime directory", err)
		}
		r.runtimeDir = dir
		r.env = []string{
			"PULSE_RUNTIME_PATH=" + dir,
			"PULSE_STATE_PATH=" + dir,
		}
	}
	if r.daemon == nil || !r.daemon.Alive() {
		handle, err := r.spawn(process.Spec{
			Name:     "pulseaudio",
			Binary:   "pulseaudio",
			Args:     []string{"--daemonize=no", "--exit-idle-time=-1", "--disallow-exit"},
			ExtraEnv: r.env,
		})
		if err != nil {
			return services.Wrap(services.ErrSetup, "audio", "start daemon", "spawn pulseaudio", err)
		}
		r.daemon = handle
		r.logger.Info("audio daemon starting",
			logging.Int("pid", handle.Pid()),
			logging.String("runtime_dir", r.runtimeDir),
		)
	}

	interval := time.Duration(r.cfg.Audio.ReadyIntervalMS) * time.Millisecond
	err := poll.Until(ctx, r.cfg.Audio.ReadyAttempts, interval, func(ctx context.Context) (bool, error) {
		if r.daemon != nil && !r.daemon.Alive() {
			return false, fmt.Errorf("audio daemon exited early: %s", r.daemon.Diagnostics())
		}
		return r.pingLocked(ctx), nil
	})
	if err != nil {
		if r.daemon != nil {
			r.daemon.Terminate(daemonGrace)
		}
		return services.Wrap(services.ErrSetup, "audio", "daemon readiness", "audio daemon never became reachable", err)
	}
	return nil
}

func (r *Router) pingLocked(ctx context.Context) bool {
	_, err := r.exec.Run(ctx, r.env, "info")
	return err == nil
}

func (r *Router) loopExistingSourcesLocked(ctx context.Context, route *Route) []string {
	out, err := r.exec.Run(ctx, r.env, "list", "short", "sources")
	if err != nil {
		r.logger.Warn("listing sources failed; pre-existing audio will not be captured", logging.Error(err))
		return nil
	}
	var loopbacks []string
	latency := strconv.Itoa(r.cfg.Audio.LoopbackLatencyMS)
	for _, src := range parseShortList(out) {
		if src.name == route.Monitor {
			continue
		}
		id, err := r.exec.Run(ctx, r.env,
			"load-module", "module-loopback",
			"source="+src.name,
			"sink="+route.Sink,
			"latency_msec="+latency,
		)
		if err != nil {
			r.logger.Warn("loopback creation failed",
				logging.String("source", src.name),
				logging.Error(err),
			)
			continue
		}
		loopbacks = append(loopbacks, strings.TrimSpace(id))
		r.logger.Info("loopback created",
			logging.String("source", src.name),
			logging.String("module", strings.TrimSpace(id)),
		)
	}
	return loopbacks
}

// IsRouted lists active sink-inputs and confirms each resolves to the
// session sink. Inputs found routed elsewhere are actively moved; the next
// poll confirms the move took.
func (r *Router) IsRouted(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	route := r.route
	if route == nil {
		return false
	}

	sinkIndex, ok := r.sinkIndexLocked(ctx, route.Sink)
	if !ok {
		return false
	}
	out, err := r.exec.Run(ctx, r.env, "list", "short", "sink-inputs")
	if err != nil {
		r.logger.Debug("listing sink-inputs failed", logging.Error(err))
		return false
	}
	inputs := parseShortList(out)
	if len(inputs) == 0 {
		return false
	}
	converged := true
	for _, input := range inputs {
		if input.name == sinkIndex {
			continue
		}
		converged = false
		if _, err := r.exec.Run(ctx, r.env, "move-sink-input", input.index, route.Sink); err != nil {
			r.logger.Warn("moving sink-input failed",
				logging.String("input", input.index),
				logging.Error(err),
			)
			continue
		}
		r.logger.Info("moved sink-input to session sink", logging.String("input", input.index))
	}
	return converged
}

// sinkIndexLocked resolves the numeric index of the named sink.
func (r *Router) sinkIndexLocked(ctx context.Context, sink string) (string, bool) {
	out, err := r.exec.Run(ctx, r.env, "list", "short", "sinks")
	if err != nil {
		return "", false
	}
	for _, entry := range parseShortList(out) {
		if entry.name == sink {
			return entry.index, true
		}
	}
	return "", false
}

// SinkPresent reports whether the session sink still exists.
func (r *Router) SinkPresent(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route == nil {
		return false
	}
	_, ok := r.sinkIndexLocked(ctx, r.route.Sink)
	return ok
}

// Converge polls IsRouted within the configured bounds. A timeout returns
// poll.ErrExhausted; callers treat it as non-fatal so video is never blocked
// on audio.
func (r *Router) Converge(ctx context.Context) error {
	interval := time.Duration(r.cfg.Audio.ConvergeIntervalMS) * time.Millisecond
	return poll.Until(ctx, r.cfg.Audio.ConvergeAttempts, interval, func(ctx context.Context) (bool, error) {
		return r.IsRouted(ctx), nil
	})
}

// Teardown destroys the route in reverse creation order: loopbacks, then the
// sink, then the default-sink assignment, then a daemon the session started.
// Safe to call repeatedly and with nothing established.
func (r *Router) Teardown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropRouteLocked(ctx)

	if r.prevDefault != "" {
		if _, err := r.exec.Run(ctx, r.env, "set-default-sink", r.prevDefault); err != nil {
			r.logger.Debug("restoring previous default sink failed", logging.Error(err))
		}
		r.prevDefault = ""
	}
	if r.daemon != nil {
		r.logger.Info("stopping session audio daemon", logging.Int("pid", r.daemon.Pid()))
		r.daemon.Terminate(daemonGrace)
		r.daemon = nil
	}
	if r.runtimeDir != "" {
		_ = os.RemoveAll(r.runtimeDir)
		r.runtimeDir = ""
		r.env = nil
	}
}

func (r *Router) dropRouteLocked(ctx context.Context) {
	route := r.route
	if route == nil {
		return
	}
	for i := len(route.Loopbacks) - 1; i >= 0; i-- {
		r.unloadModuleLocked(ctx, route.Loopbacks[i])
	}
	if route.SinkModule != "" {
		r.unloadModuleLocked(ctx, route.SinkModule)
	}
	r.route = nil
}

func (r *Router) unloadModuleLocked(ctx context.Context, id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	if _, err := r.exec.Run(ctx, r.env, "unload-module", id); err != nil {
		r.logger.Debug("unloading module failed", logging.String("module", id), logging.Error(err))
	}
}

// Entry describes one sink or source known to the daemon, for status output.
type Entry struct {
	Index string
	Name  string
	State string
}

// ListSources returns the daemon's sources.
func (r *Router) ListSources(ctx context.Context) ([]Entry, error) {
	return r.listShort(ctx, "sources")
}

// ListSinks returns the daemon's sinks.
func (r *Router) ListSinks(ctx context.Context) ([]Entry, error) {
	return r.listShort(ctx, "sinks")
}

func (r *Router) listShort(ctx context.Context, kind string) ([]Entry, error) {
	r.mu.Lock()
	env := r.env
	r.mu.Unlock()
	out, err := r.exec.Run(ctx, env, "list", "short", kind)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "audio", "list "+kind, "", err)
	}
	var entries []Entry
	for _, row := range parseShortList(out) {
		entry := Entry{Index: row.index, Name: row.name}
		if len(row.fields) > 0 {
			entry.State = row.fields[len(row.fields)-1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
