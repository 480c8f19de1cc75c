package preflight

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// audioDaemonNames are host audio daemons worth reporting: a session starts
// its own scoped daemon, but knowing what already runs helps diagnose routing
// surprises when the host's daemon grabs a device first.
var audioDaemonNames = map[string]struct{}{
	"pulseaudio":     {},
	"pipewire-pulse": {},
}

// checkHostAudio reports which audio daemons are already running on the
// host. This check is informational and always passes; failing to enumerate
// processes is reported but not fatal.
func checkHostAudio(ctx context.Context) Result {
	result := Result{Name: "host audio daemons", Passed: true}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		result.Details = "process enumeration unavailable: " + err.Error()
		return result
	}
	var running []string
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if _, ok := audioDaemonNames[name]; ok {
			running = append(running, name)
		}
	}
	if len(running) == 0 {
		result.Details = "none running; the session starts its own"
		return result
	}
	result.Details = strings.Join(running, ", ") + " running; session audio uses a scoped daemon"
	return result
}
