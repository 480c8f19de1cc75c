// Package preflight verifies the host can run a capture session before one
// is attempted: external tools on PATH, writable working directories, and a
// look at any audio daemons already running on the host.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"webcast/internal/config"
	"webcast/internal/deps"
)

// Result is one preflight finding.
type Result struct {
	Name    string
	Passed  bool
	Details string
}

// RunAll executes every check against the loaded configuration.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	results := []Result{}
	results = append(results, checkBinaries()...)
	results = append(results, checkDirectories(cfg)...)
	results = append(results, checkHostAudio(ctx))
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

func checkBinaries() []Result {
	var results []Result
	for _, status := range deps.Check(deps.Default()) {
		result := Result{Name: "tool: " + status.Name, Passed: status.Found}
		if status.Found {
			result.Details = status.Path
		} else {
			result.Details = fmt.Sprintf("not found on PATH (%s)", status.Purpose)
		}
		results = append(results, result)
	}
	return results
}

func checkDirectories(cfg *config.Config) []Result {
	dirs := map[string]string{
		"log directory":       cfg.Logging.Dir,
		"audio runtime base":  cfg.Audio.RuntimeDirBase,
		"lock file directory": filepath.Dir(cfg.Session.LockPath),
	}
	var results []Result
	for name, dir := range dirs {
		results = append(results, checkWritableDir(name, dir))
	}
	return results
}

func checkWritableDir(name, dir string) Result {
	result := Result{Name: name, Details: dir}
	if dir == "" {
		result.Details = "not configured"
		return result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Details = fmt.Sprintf("%s: %v", dir, err)
		return result
	}
	probe, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		result.Details = fmt.Sprintf("%s: not writable: %v", dir, err)
		return result
	}
	probe.Close()
	os.Remove(probe.Name())
	result.Passed = true
	return result
}
