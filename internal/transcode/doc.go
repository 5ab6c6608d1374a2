// Package transcode re-encodes videos into a web-deliverable MP4 using
// FFmpeg, behind a narrow Strategy interface with two interchangeable
// implementations selected by configuration.
//
// The direct strategy constructs an explicit command line with a
// transpose/scale filter chain; the wrapped strategy goes through the
// ffmpeg-go builder and is kept as the legacy fallback path. Both
// enforce a hard wall-clock timeout with guaranteed child termination,
// capture stderr for diagnostics, and write to a scratch path that is
// only promoted into place after the output is verified non-empty.
//
// FFmpeg must be installed and available; the binary path is
// configurable.
package transcode
