// Package publish supervises the ffmpeg transcoder that captures the virtual
// display and the session audio monitor and pushes the encoded stream to the
// publish endpoint.
//
// Supervision policy: the first unexpected transcoder exit is retried exactly
// once with a silent generated audio source, on the theory that a broken
// audio route is the most common cause and a silent stream still beats no
// stream. A second exit is terminal and carries the diagnostics of both
// attempts.
package publish
