package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker pool size for the given multiplier, capped
// at limit (0 for no cap). It sizes off GOMAXPROCS rather than
// runtime.NumCPU so container CPU limits are respected.
//
// Transcode workers mostly block on an external ffmpeg process, which
// does its own threading; the multiplier expresses how many concurrent
// jobs per available CPU the host should carry.
//
// The PIPELINE_WORKERS environment variable overrides the calculation.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("PIPELINE_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			if limit > 0 && n > limit {
				return limit
			}
			return n
		}
	}

	available := runtime.GOMAXPROCS(0)

	n := int(float64(available) * multiplier)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForTranscode returns the pool size for transcode jobs. Each job
// saturates roughly one CPU through its ffmpeg child process, so this
// uses one worker per available CPU.
func ForTranscode(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns the pool size for I/O-bound work (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}
