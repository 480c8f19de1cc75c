package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected an error for existing config without --overwrite")
	}
}

func TestConfigValidateWithEnvEndpoints(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowReportsEffectiveValues(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "page_url")
	requireContains(t, out, "https://example.com/player")
	requireContains(t, out, "webcast_sink.monitor")
}

func TestRunRejectsMissingEndpoints(t *testing.T) {
	setupCLITestEnv(t)
	t.Setenv("WEBCAST_PAGE_URL", "")
	t.Setenv("WEBCAST_PUBLISH_URL", "")

	if _, err := runCLI(t, []string{"run"}); err == nil {
		t.Fatal("expected run to fail without stream endpoints")
	}
}
