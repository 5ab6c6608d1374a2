package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"media-pipeline/internal/geometry"
)

// Settings carries the codec and quality parameters for a single
// transcode invocation. The codec fallback loop lives in the consumer;
// a strategy is handed exactly one codec pair per call.
type Settings struct {
	VideoCodec   string
	AudioCodec   string
	CRF          int
	Preset       string
	AudioBitrate string
}

// Strategy transcodes inputPath according to the geometry plan and
// writes the result to outputPath. Implementations must run the
// external tool with a hard wall-clock timeout, capture diagnostics,
// and only promote verified output into place.
type Strategy interface {
	Transcode(ctx context.Context, inputPath string, plan geometry.Plan, settings Settings, outputPath string) error
}

// scratchPath derives the temporary output location for outputPath.
// Scratch files live in tempDir so partial output is never visible
// under the final name; tempDir must share a filesystem with the
// output directory for the rename to stay atomic.
func scratchPath(tempDir, outputPath string) string {
	return filepath.Join(tempDir, filepath.Base(outputPath)+".partial")
}

// promote verifies the scratch file and atomically moves it into place.
func promote(scratch, outputPath string) error {
	info, err := os.Stat(scratch)
	if err != nil {
		return fmt.Errorf("transcode output missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("transcode output %s is empty", scratch)
	}
	if err := os.Rename(scratch, outputPath); err != nil {
		return fmt.Errorf("promote output: %w", err)
	}
	return nil
}
