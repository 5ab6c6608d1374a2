package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	_ "image/png"

	"github.com/disintegration/imaging"

	"media-pipeline/internal/logging"
)

const jpegQuality = 80

// Extractor pulls a single frame out of a video and writes it as a
// bounded JPEG thumbnail.
type Extractor struct {
	binary    string
	tempDir   string
	timestamp float64
	width     int
	height    int
	timeout   time.Duration
}

// New creates an Extractor. timestamp is the preferred frame position
// in seconds; width and height bound the thumbnail while preserving
// aspect ratio.
func New(binary, tempDir string, timestamp float64, width, height int, timeout time.Duration) *Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{
		binary:    binary,
		tempDir:   tempDir,
		timestamp: timestamp,
		width:     width,
		height:    height,
		timeout:   timeout,
	}
}

// Extract grabs a frame from inputPath and writes the thumbnail to
// outputPath via a scratch file. duration is the probed media duration,
// used to clamp the configured timestamp for short clips.
func (e *Extractor) Extract(ctx context.Context, inputPath string, duration float64, outputPath string) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ts := clampTimestamp(e.timestamp, duration)

	frame, err := e.extractFrame(ctx, inputPath, ts)
	if err != nil {
		// Seeking past the last keyframe of a very short clip can
		// produce no output; retry from the start before giving up.
		if ts > 0 {
			logging.Debug("Frame extract at %.2fs failed (%v), retrying at 0", ts, err)
			frame, err = e.extractFrame(ctx, inputPath, 0)
		}
		if err != nil {
			return fmt.Errorf("extract frame: %w", err)
		}
	}

	thumb := imaging.Fit(frame, e.width, e.height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	scratch := filepath.Join(e.tempDir, filepath.Base(outputPath)+".partial")
	defer os.Remove(scratch)

	if err := os.WriteFile(scratch, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := os.Rename(scratch, outputPath); err != nil {
		return fmt.Errorf("promote thumbnail: %w", err)
	}

	return nil
}

// extractFrame decodes one frame at the given position via an ffmpeg
// image2pipe.
func (e *Extractor) extractFrame(ctx context.Context, inputPath string, timestamp float64) (image.Image, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", inputPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", inputPath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	return img, nil
}

// clampTimestamp keeps the frame position inside the clip. A timestamp
// past the end falls back to the midpoint of the duration.
func clampTimestamp(timestamp, duration float64) float64 {
	if timestamp < 0 {
		return 0
	}
	if duration > 0 && timestamp > duration {
		return duration / 2
	}
	return timestamp
}
