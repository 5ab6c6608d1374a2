package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"media-pipeline/internal/geometry"
)

// Wrapped is the legacy strategy built on the ffmpeg-go fluent builder.
// It leans on ffmpeg's autorotation to bake orientation in during the
// re-encode, then scales to the display-oriented target dimensions.
// The builder is only used to compile the command; execution goes
// through the same runner as the direct strategy so timeout and
// teardown behave identically.
type Wrapped struct {
	binary  string
	tempDir string
	timeout time.Duration
}

// NewWrapped creates the wrapped-library strategy.
func NewWrapped(binary, tempDir string, timeout time.Duration) *Wrapped {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Wrapped{binary: binary, tempDir: tempDir, timeout: timeout}
}

// Transcode implements Strategy.
func (w *Wrapped) Transcode(ctx context.Context, inputPath string, plan geometry.Plan, settings Settings, outputPath string) error {
	scratch := scratchPath(w.tempDir, outputPath)
	defer os.Remove(scratch)

	stream := ffmpeg.Input(inputPath).
		Output(scratch, ffmpeg.KwArgs{
			"vf":             fmt.Sprintf("scale=%d:%d", plan.TargetWidth, plan.TargetHeight),
			"c:v":            settings.VideoCodec,
			"preset":         settings.Preset,
			"crf":            strconv.Itoa(settings.CRF),
			"pix_fmt":        "yuv420p",
			"c:a":            settings.AudioCodec,
			"b:a":            settings.AudioBitrate,
			"metadata:s:v:0": "rotate=0",
			"movflags":       "+faststart",
			"f":              "mp4",
		}).
		OverWriteOutput().
		SetFfmpegPath(w.binary)

	var stderr bytes.Buffer
	cmd := stream.WithErrorOutput(&stderr).Compile()
	cmd.Stderr = &stderr

	if err := run(ctx, cmd, w.timeout); err != nil {
		return err
	}

	return promote(scratch, outputPath)
}
