package process_test

import (
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"webcast/internal/process"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func waitDone(t *testing.T, h *process.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit in time")
	}
}

func TestSpawnRecordsExitCode(t *testing.T) {
	requireShell(t)
	h, err := process.Spawn(process.Spec{Name: "exit3", Binary: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	waitDone(t, h)

	state, code := h.Exit()
	if state != process.ExitedCode {
		t.Fatalf("unexpected exit state %v", state)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if h.Alive() {
		t.Fatal("expected process to be dead")
	}
}

func TestSpawnCapturesOutputTail(t *testing.T) {
	requireShell(t)
	var mu sync.Mutex
	var seen []string
	h, err := process.Spawn(process.Spec{
		Name:   "chatty",
		Binary: "sh",
		Args:   []string{"-c", "echo one; echo two 1>&2"},
		OnLine: func(line string) {
			mu.Lock()
			seen = append(seen, line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	waitDone(t, h)

	mu.Lock()
	lines := strings.Join(seen, "\n")
	mu.Unlock()
	if !strings.Contains(lines, "one") || !strings.Contains(lines, "two") {
		t.Fatalf("OnLine missed output: %q", lines)
	}
	diag := h.Diagnostics()
	if !strings.Contains(diag, "chatty") || !strings.Contains(diag, "one") {
		t.Fatalf("unexpected diagnostics: %q", diag)
	}
}

func TestTerminateClassifiesKilled(t *testing.T) {
	requireShell(t)
	// exec keeps the pipe ownership with the long-running child so Done
	// tracks the real process, not an intermediate shell.
	h, err := process.Spawn(process.Spec{
		Name:   "stubborn",
		Binary: "sh",
		Args:   []string{"-c", "exec sleep 30"},
	})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	start := time.Now()
	h.Terminate(200 * time.Millisecond)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Terminate blocked for %v", elapsed)
	}
	waitDone(t, h)

	state, _ := h.Exit()
	if state != process.ExitedKilled {
		t.Fatalf("expected ExitedKilled, got %v", state)
	}

	// Second call must be a no-op.
	h.Terminate(time.Millisecond)
}

func TestSpawnRejectsEmptyBinary(t *testing.T) {
	if _, err := process.Spawn(process.Spec{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
