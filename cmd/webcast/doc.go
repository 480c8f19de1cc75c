// Command webcast captures a rendered web page to a published audio/video
// stream. `webcast run` owns the whole session: a virtual display, a scoped
// audio daemon with a capture sink, a browser renderer, and the transcoder
// pushing to the publish endpoint.
package main
