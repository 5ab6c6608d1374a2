// Package probe extracts stream dimensions, rotation metadata, duration
// and codec names from media files using ffprobe's JSON output.
//
// Rotation metadata lives in two places depending on the recording
// device and container version: a stream-level "rotate" tag, or a
// Display Matrix entry in the stream's side data. Both are read; the
// tag takes priority. The raw value is passed through unreduced so the
// geometry resolver owns normalization.
package probe
