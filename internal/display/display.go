// Package display starts and owns the virtual display surface the renderer
// draws on.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webcast/internal/config"
	"webcast/internal/logging"
	"webcast/internal/poll"
	"webcast/internal/process"
	"webcast/internal/services"
)

const (
	startPollInterval = 250 * time.Millisecond
	releaseGrace      = 3 * time.Second
	displayProbeSpan  = 64
)

// Surface is an acquired virtual display.
type Surface struct {
	// Display is the X display identifier, e.g. ":99".
	Display string
	Width   int
	Height  int

	handle      *process.Handle
	logger      *slog.Logger
	releaseOnce sync.Once
}

// Manager acquires virtual display surfaces.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger

	// lockDir and socketDir are the X server's well-known paths; fields so
	// tests can redirect them.
	lockDir   string
	socketDir string
	spawn     func(process.Spec) (*process.Handle, error)
}

// Option configures the manager.
type Option func(*Manager)

// WithSpawner injects a custom process spawner (primarily for tests).
func WithSpawner(spawn func(process.Spec) (*process.Handle, error)) Option {
	return func(m *Manager) {
		if spawn != nil {
			m.spawn = spawn
		}
	}
}

// NewManager constructs a display manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "display"),
		lockDir:   "/tmp",
		socketDir: "/tmp/.X11-unix",
		spawn:     process.Spawn,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire starts a virtual display process bound to a free display number
// and the given pixel geometry, then waits for it to become usable.
func (m *Manager) Acquire(ctx context.Context, width, height int) (*Surface, error) {
	number, err := m.freeDisplayNumber()
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "display", "acquire", "no free display number", err)
	}
	name := fmt.Sprintf(":%d", number)

	handle, err := m.spawn(process.Spec{
		Name:   "Xvfb",
		Binary: "Xvfb",
		Args: []string{
			name,
			"-screen", "0", fmt.Sprintf("%dx%dx24", width, height),
			"-nolisten", "tcp",
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "display", "acquire", "start virtual display", err)
	}
	m.logger.Info("virtual display starting",
		logging.String("display", name),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Int("pid", handle.Pid()),
	)

	attempts := m.cfg.Display.StartTimeout * int(time.Second/startPollInterval)
	err = poll.Until(ctx, attempts, startPollInterval, func(context.Context) (bool, error) {
		if !handle.Alive() {
			return false, fmt.Errorf("virtual display exited early: %s", handle.Diagnostics())
		}
		return m.socketReady(number), nil
	})
	if err != nil {
		handle.Terminate(releaseGrace)
		if err == poll.ErrExhausted {
			err = fmt.Errorf("display %s not usable after %ds: %s", name, m.cfg.Display.StartTimeout, handle.Diagnostics())
		}
		return nil, services.Wrap(services.ErrSetup, "display", "acquire", "virtual display never became ready", err)
	}

	m.logger.Info("virtual display ready", logging.String("display", name))
	return &Surface{
		Display: name,
		Width:   width,
		Height:  height,
		handle:  handle,
		logger:  m.logger,
	}, nil
}

// freeDisplayNumber probes for a display number without an X lock file.
func (m *Manager) freeDisplayNumber() (int, error) {
	base := m.cfg.Display.BaseNumber
	for n := base; n < base+displayProbeSpan; n++ {
		lock := filepath.Join(m.lockDir, fmt.Sprintf(".X%d-lock", n))
		if _, err := os.Stat(lock); os.IsNotExist(err) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("display numbers %d-%d all locked", base, base+displayProbeSpan-1)
}

func (m *Manager) socketReady(number int) bool {
	socket := filepath.Join(m.socketDir, fmt.Sprintf("X%d", number))
	_, err := os.Stat(socket)
	return err == nil
}

// Release terminates the display process. Idempotent; it does not block past
// the termination grace period.
func (s *Surface) Release() {
	s.releaseOnce.Do(func() {
		if s.handle == nil {
			return
		}
		s.logger.Info("releasing virtual display", logging.String("display", s.Display))
		s.handle.Terminate(releaseGrace)
	})
}
