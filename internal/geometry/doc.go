// Package geometry resolves raw stream dimensions and rotation metadata
// into concrete transcoding dimensions.
//
// Containers store frames in their recorded orientation and attach
// rotation metadata describing how they should be displayed. The
// resolver keeps those two concerns separate: storage dimensions come
// straight from the probe, display dimensions account for rotation, and
// target dimensions additionally respect the configured maximum output
// bounds. All functions are pure so the full rotation/orientation matrix
// can be tested without touching ffmpeg.
package geometry
