package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webcast/internal/config"
	"webcast/internal/logging"
	"webcast/internal/process"
	"webcast/internal/services"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.Display.BaseNumber = 90
	cfg.Display.StartTimeout = 1
	m := NewManager(&cfg, logging.NewNop())
	m.lockDir = t.TempDir()
	m.socketDir = t.TempDir()
	return m
}

func TestFreeDisplayNumberSkipsLocked(t *testing.T) {
	m := testManager(t)
	for _, n := range []int{90, 91} {
		lock := filepath.Join(m.lockDir, fmt.Sprintf(".X%d-lock", n))
		if err := os.WriteFile(lock, []byte("1234\n"), 0o644); err != nil {
			t.Fatalf("write lock: %v", err)
		}
	}
	n, err := m.freeDisplayNumber()
	if err != nil {
		t.Fatalf("freeDisplayNumber: %v", err)
	}
	if n != 92 {
		t.Fatalf("expected display 92, got %d", n)
	}
}

func TestAcquireFailsWhenProcessExitsEarly(t *testing.T) {
	m := testManager(t)
	m.spawn = func(spec process.Spec) (*process.Handle, error) {
		return process.Spawn(process.Spec{
			Name:   spec.Name,
			Binary: "sh",
			Args:   []string{"-c", "echo 'fatal: cannot open display'; exit 1"},
		})
	}

	_, err := m.Acquire(context.Background(), 1280, 720)
	if err == nil {
		t.Fatal("expected setup failure")
	}
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected ErrSetup, got %v", err)
	}
}

func TestAcquireSucceedsWhenSocketAppears(t *testing.T) {
	m := testManager(t)
	m.spawn = func(spec process.Spec) (*process.Handle, error) {
		return process.Spawn(process.Spec{
			Name:   spec.Name,
			Binary: "sh",
			Args:   []string{"-c", "exec sleep 30"},
		})
	}

	// Simulate the X server creating its socket shortly after launch.
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(m.socketDir, "X90"), nil, 0o644)
	}()

	surface, err := m.Acquire(context.Background(), 640, 480)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if surface.Display != ":90" {
		t.Fatalf("unexpected display %q", surface.Display)
	}
	surface.Release()
	surface.Release() // idempotent
}

func TestAcquireTimesOutWithoutSocket(t *testing.T) {
	m := testManager(t)
	m.spawn = func(spec process.Spec) (*process.Handle, error) {
		return process.Spawn(process.Spec{
			Name:   spec.Name,
			Binary: "sh",
			Args:   []string{"-c", "exec sleep 30"},
		})
	}

	start := time.Now()
	_, err := m.Acquire(context.Background(), 640, 480)
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected ErrSetup, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("acquire did not respect its timeout bound")
	}
}
