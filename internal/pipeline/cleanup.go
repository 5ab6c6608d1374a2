package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"media-pipeline/internal/logging"
)

// SweepTemp removes regular files in dir older than maxAge and returns
// the number removed. Scratch files normally disappear when their job
// settles; anything left behind belongs to a crashed worker.
func SweepTemp(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to remove stale temp file %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Info("Swept %d stale temp files from %s", removed, dir)
	}
	return removed, nil
}
