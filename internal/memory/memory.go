package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-pipeline/internal/logging"
)

// DefaultRatio is the share of the container memory limit handed to
// the Go heap. The remainder is headroom for ffmpeg child processes,
// whose allocations the Go runtime cannot see or bound.
const DefaultRatio = 0.75

const (
	sourceGoMemLimit  = "GOMEMLIMIT"
	sourceMemoryLimit = "MEMORY_LIMIT"
	sourceNone        = "none"
)

// Result reports what ConfigureFromEnv decided.
type Result struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit.
// Call early in main, before significant allocations.
//
// GOMEMLIMIT, if set, wins (the runtime already honored it at
// startup). Otherwise MEMORY_LIMIT, the container limit in bytes from
// the Kubernetes Downward API, is scaled by MEMORY_RATIO (default
// 0.75) and applied.
func ConfigureFromEnv() Result {
	var result Result

	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = sourceGoMemLimit
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limitStr := os.Getenv("MEMORY_LIMIT")
	if limitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unconfigured")
		result.Source = sourceNone
		return result
	}

	containerLimit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring unparseable MEMORY_LIMIT %q", limitStr)
		result.Source = sourceNone
		return result
	}
	result.ContainerLimit = containerLimit

	ratio := DefaultRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		if err == nil && parsed > 0 && parsed <= 1.0 {
			ratio = parsed
		} else {
			logging.Warn("MEMORY_RATIO %q invalid, using default %.2f", ratioStr, DefaultRatio)
		}
	}
	result.Ratio = ratio

	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)

	result.Configured = true
	result.Source = sourceMemoryLimit
	result.GoMemLimit = goLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit, remainder reserved for ffmpeg)",
		formatBytes(goLimit), ratio*100, formatBytes(containerLimit))
	return result
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
