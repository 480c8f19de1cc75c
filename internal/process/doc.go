// Package process owns the external child processes a capture session spawns.
//
// Each spawned process is represented by exactly one Handle. The owner of a
// Handle is responsible for terminating it before releasing it; termination
// escalates from SIGTERM to SIGKILL after a grace period and never blocks
// past that grace. The handle keeps a bounded tail of the child's combined
// output so setup failures can surface the underlying diagnostic.
package process
