package geometry

import (
	"media-pipeline/internal/logging"
)

// Plan describes how a video should be reframed during transcoding.
// Display dimensions are the storage dimensions with rotation applied;
// target dimensions additionally respect the configured maximum bounds.
type Plan struct {
	Rotation      int
	DisplayWidth  int
	DisplayHeight int
	TargetWidth   int
	TargetHeight  int
}

// NeedsRotation reports whether the plan requires a rotation filter.
func (p Plan) NeedsRotation() bool {
	return p.Rotation != 0
}

// NeedsScale reports whether the target dimensions differ from the
// display dimensions.
func (p Plan) NeedsScale() bool {
	return p.TargetWidth != p.DisplayWidth || p.TargetHeight != p.DisplayHeight
}

// NormalizeRotation reduces an arbitrary rotation angle into the
// canonical set {0, 90, 180, 270}. Angles outside the canonical set
// after reduction into [0, 360) are treated as 0; containers in the
// wild only carry quarter-turn rotations, so anything else is metadata
// noise rather than a real orientation.
func NormalizeRotation(degrees int) int {
	r := ((degrees % 360) + 360) % 360
	switch r {
	case 0, 90, 180, 270:
		return r
	}
	logging.Warn("Non-canonical rotation %d (reduced %d) treated as 0", degrees, r)
	return 0
}

// Resolve computes the geometry plan for a video with the given storage
// dimensions and raw rotation metadata, constrained to maxWidth x
// maxHeight. Target dimensions are scaled down (never up) preserving
// aspect ratio, and rounded down to even values as required by 4:2:0
// chroma subsampling.
func Resolve(storageWidth, storageHeight, rotation, maxWidth, maxHeight int) Plan {
	r := NormalizeRotation(rotation)

	displayWidth, displayHeight := storageWidth, storageHeight
	if r == 90 || r == 270 {
		displayWidth, displayHeight = storageHeight, storageWidth
	}

	targetWidth, targetHeight := fit(displayWidth, displayHeight, maxWidth, maxHeight)

	return Plan{
		Rotation:      r,
		DisplayWidth:  displayWidth,
		DisplayHeight: displayHeight,
		TargetWidth:   targetWidth,
		TargetHeight:  targetHeight,
	}
}

// fit scales (w, h) down to the bounding box, preserving aspect ratio.
// Dimensions already within bounds pass through untouched apart from
// even rounding.
func fit(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 {
		return even(w), even(h)
	}
	if w <= maxW && h <= maxH {
		return even(w), even(h)
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	return even(int(float64(w) * scale)), even(int(float64(h) * scale))
}

// even rounds down to the nearest even integer, with a floor of 2 so a
// degenerate input can never produce a zero-sized axis.
func even(n int) int {
	n &^= 1
	if n < 2 {
		return 2
	}
	return n
}
