package preflight

import (
	"context"
	"path/filepath"
	"testing"

	"webcast/internal/config"
)

func TestCheckWritableDir(t *testing.T) {
	writable := checkWritableDir("scratch", t.TempDir())
	if !writable.Passed {
		t.Fatalf("temp dir should pass: %+v", writable)
	}

	missing := checkWritableDir("scratch", "")
	if missing.Passed {
		t.Fatalf("empty path should fail: %+v", missing)
	}
}

func TestRunAllCoversToolsAndDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(base, "logs")
	cfg.Audio.RuntimeDirBase = filepath.Join(base, "audio")
	cfg.Session.LockPath = filepath.Join(base, "webcast.lock")

	results := RunAll(context.Background(), &cfg)

	names := map[string]bool{}
	for _, result := range results {
		names[result.Name] = true
	}
	for _, want := range []string{
		"tool: Xvfb",
		"tool: ffmpeg",
		"log directory",
		"audio runtime base",
		"lock file directory",
		"host audio daemons",
	} {
		if !names[want] {
			t.Fatalf("missing check %q in %v", want, names)
		}
	}
}

func TestPassed(t *testing.T) {
	if !Passed([]Result{{Passed: true}, {Passed: true}}) {
		t.Fatal("all-pass should report true")
	}
	if Passed([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("any failure should report false")
	}
}
