// Package audio establishes the session's virtual audio route.
//
// It ensures a PulseAudio daemon is reachable (starting a session-scoped one
// when the host has none), creates a named null sink, makes it the default so
// new streams attach to it automatically, loops pre-existing sources into it,
// and exposes the convergence check the orchestrator polls before encoding
// starts. All daemon interaction goes through pactl; the Executor interface
// abstracts that for tests.
package audio
