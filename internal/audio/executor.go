package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Executor abstracts pactl invocation for testability. env entries are
// appended to the process environment so control commands talk to the same
// daemon instance the session owns.
type Executor interface {
	Run(ctx context.Context, env []string, args ...string) (string, error)
}

type commandExecutor struct {
	binary string
}

func (e commandExecutor) Run(ctx context.Context, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if text != "" {
			return text, fmt.Errorf("%s %s: %w: %s", e.binary, strings.Join(args, " "), err, text)
		}
		return text, fmt.Errorf("%s %s: %w", e.binary, strings.Join(args, " "), err)
	}
	return text, nil
}

// shortEntry is one row of `pactl list short ...` output.
type shortEntry struct {
	index  string
	name   string
	fields []string
}

func parseShortList(out string) []shortEntry {
	var entries []shortEntry
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, shortEntry{index: fields[0], name: fields[1], fields: fields})
	}
	return entries
}
