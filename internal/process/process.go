package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const defaultTailLines = 40

// Spec describes a child process to spawn.
type Spec struct {
	// Name labels the process in diagnostics ("Xvfb", "pulseaudio", ...).
	Name   string
	Binary string
	Args   []string
	// ExtraEnv entries are appended to the current environment for this
	// process only; nothing leaks into the parent or into siblings.
	ExtraEnv []string
	Dir      string
	// OnLine receives each line of combined stdout/stderr as it arrives.
	OnLine func(line string)
	// TailLines bounds the retained diagnostic tail (default 40).
	TailLines int
}

// ExitState classifies how a child process ended.
type ExitState int

const (
	// ExitUnset means the process is still running.
	ExitUnset ExitState = iota
	// ExitedCode means the process exited on its own with a code.
	ExitedCode
	// ExitedKilled means the process ended due to a signal.
	ExitedKilled
)

// Handle is an owned external process.
type Handle struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
	tail *tailBuffer

	mu       sync.Mutex
	exited   bool
	exitCode int
	killed   bool

	termOnce sync.Once
}

// Spawn starts the described process and begins scanning its output.
func Spawn(spec Spec) (*Handle, error) {
	binary := strings.TrimSpace(spec.Binary)
	if binary == "" {
		return nil, errors.New("process: binary required")
	}

	cmd := exec.Command(binary, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	if len(spec.ExtraEnv) > 0 {
		cmd.Env = append(os.Environ(), spec.ExtraEnv...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.name(), err)
	}

	h := &Handle{
		name: spec.name(),
		cmd:  cmd,
		done: make(chan struct{}),
		tail: newTailBuffer(spec.TailLines),
	}
	go h.reap(stdout, stderr, spec.OnLine)
	return h, nil
}

func (s Spec) name() string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return s.Binary
}

func (h *Handle) reap(stdout, stderr io.Reader, onLine func(string)) {
	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			line := scanner.Text()
			h.tail.add(line)
			if onLine != nil {
				onLine(line)
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	err := h.cmd.Wait()

	h.mu.Lock()
	h.exited = true
	switch {
	case err == nil:
		h.exitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				h.killed = true
				h.exitCode = -1
			} else {
				h.exitCode = exitErr.ExitCode()
			}
		} else {
			h.exitCode = -1
		}
	}
	h.mu.Unlock()
	close(h.done)
}

// Pid returns the child's process ID.
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Name returns the diagnostic label for this process.
func (h *Handle) Name() string { return h.name }

// Done is closed once the process has exited and its output is drained.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.exited
}

// Exit returns the exit classification. State is ExitUnset while running.
func (h *Handle) Exit() (ExitState, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case !h.exited:
		return ExitUnset, 0
	case h.killed:
		return ExitedKilled, h.exitCode
	default:
		return ExitedCode, h.exitCode
	}
}

// Diagnostics returns the retained tail of the child's combined output.
func (h *Handle) Diagnostics() string {
	lines := h.tail.snapshot()
	if len(lines) == 0 {
		return fmt.Sprintf("%s: no output captured", h.name)
	}
	return fmt.Sprintf("%s:\n%s", h.name, strings.Join(lines, "\n"))
}

// Terminate asks the process to exit, escalating to SIGKILL after grace.
// It is idempotent: a second call performs no additional signals. It never
// blocks longer than the grace period.
func (h *Handle) Terminate(grace time.Duration) {
	h.termOnce.Do(func() {
		if !h.Alive() {
			return
		}
		proc := h.cmd.Process
		if proc == nil {
			return
		}
		_ = proc.Signal(unix.SIGTERM)
		if grace <= 0 {
			grace = time.Second
		}
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-h.done:
		case <-timer.C:
			_ = proc.Signal(unix.SIGKILL)
		}
	})
}
