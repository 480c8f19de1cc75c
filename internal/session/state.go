package session

// State names the observable phase of a capture session.
type State string

const (
	StateIdle        State = "idle"
	StateDisplayUp   State = "display_up"
	StateAudioRouted State = "audio_routed"
	StateRenderReady State = "render_ready"
	StatePublishing  State = "publishing"
	StateRetrying    State = "retrying"
	StateStopped     State = "stopped"
	StateFailed      State = "failed"
)
