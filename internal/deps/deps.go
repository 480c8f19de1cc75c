// Package deps declares the external tools a capture session shells out to
// and resolves them against PATH.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external tool. Candidates are alternative binary
// names tried in order; the first hit wins.
type Requirement struct {
	Name       string
	Candidates []string
	Purpose    string
	Optional   bool
}

// Status is a resolved requirement.
type Status struct {
	Requirement
	Found bool
	Path  string
}

// rendererCandidates covers the common Chromium packagings across distros.
var rendererCandidates = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"}

// Default returns the tool set a session needs.
func Default() []Requirement {
	return []Requirement{
		{Name: "Xvfb", Candidates: []string{"Xvfb"}, Purpose: "virtual display server"},
		{Name: "pulseaudio", Candidates: []string{"pulseaudio"}, Purpose: "audio daemon"},
		{Name: "pactl", Candidates: []string{"pactl"}, Purpose: "audio daemon control"},
		{Name: "ffmpeg", Candidates: []string{"ffmpeg"}, Purpose: "capture and publish transcoder"},
		{Name: "renderer", Candidates: rendererCandidates, Purpose: "browser renderer"},
	}
}

// Check resolves each requirement against PATH.
func Check(reqs []Requirement) []Status {
	statuses := make([]Status, 0, len(reqs))
	for _, req := range reqs {
		status := Status{Requirement: req}
		for _, candidate := range req.Candidates {
			if path, err := exec.LookPath(candidate); err == nil {
				status.Found = true
				status.Path = path
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Missing filters statuses down to required tools that did not resolve.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Found && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// ResolveRenderer returns the browser binary to launch. An explicit
// configured path wins; otherwise the first PATH candidate is used.
func ResolveRenderer(configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("configured renderer %q not found", configured)
	}
	for _, candidate := range rendererCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no browser renderer found (tried %s)", strings.Join(rendererCandidates, ", "))
}
