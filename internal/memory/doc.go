// Package memory wires the Go soft memory limit to the container's
// memory limit so the garbage collector backs off before the kernel
// OOM killer fires. The pipeline forks ffmpeg for every job, so only a
// fraction of the container limit goes to the Go heap; the rest stays
// free for child processes.
package memory
