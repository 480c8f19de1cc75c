package main

import (
	"bytes"
	"strings"
	"testing"
)

// setupCLITestEnv isolates HOME so config resolution never touches the real
// user profile, and supplies stream endpoints through the environment.
func setupCLITestEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("WEBCAST_PAGE_URL", "https://example.com/player")
	t.Setenv("WEBCAST_PUBLISH_URL", "rtmp://ingest.example.com/live/key")
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}
