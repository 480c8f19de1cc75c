// Package session sequences a capture session: virtual display, audio route,
// renderer, and transcoder come up in order, and whatever was acquired comes
// down in exact reverse order no matter where setup stopped.
package session
