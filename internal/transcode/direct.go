package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"media-pipeline/internal/geometry"
	"media-pipeline/internal/logging"
)

// Direct builds an explicit ffmpeg command line. Rotation correction is
// baked into the pixels with transpose/flip filters and the rotation
// metadata is zeroed, so downstream players never have to interpret
// orientation themselves.
type Direct struct {
	binary  string
	tempDir string
	timeout time.Duration
}

// NewDirect creates the direct-invocation strategy.
func NewDirect(binary, tempDir string, timeout time.Duration) *Direct {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Direct{binary: binary, tempDir: tempDir, timeout: timeout}
}

// Transcode implements Strategy.
func (d *Direct) Transcode(ctx context.Context, inputPath string, plan geometry.Plan, settings Settings, outputPath string) error {
	scratch := scratchPath(d.tempDir, outputPath)
	defer os.Remove(scratch)

	args := buildArgs(inputPath, plan, settings, scratch)
	logging.Debug("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.Command(d.binary, args...)
	if err := run(ctx, cmd, d.timeout); err != nil {
		return err
	}

	return promote(scratch, outputPath)
}

// buildArgs constructs the ffmpeg argument list. Autorotation is
// disabled so the explicit filter chain is the only thing touching
// orientation; applying both would rotate twice.
func buildArgs(inputPath string, plan geometry.Plan, settings Settings, scratch string) []string {
	args := []string{
		"-y",
		"-noautorotate",
		"-i", inputPath,
	}

	if vf := videoFilter(plan); vf != "" {
		args = append(args, "-vf", vf)
	}

	args = append(args,
		"-c:v", settings.VideoCodec,
		"-preset", settings.Preset,
		"-crf", strconv.Itoa(settings.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", settings.AudioCodec,
		"-b:a", settings.AudioBitrate,
		"-metadata:s:v:0", "rotate=0",
		"-movflags", "+faststart",
		"-f", "mp4",
		scratch,
	)

	return args
}

// videoFilter translates the geometry plan into an ffmpeg filter chain.
// Inputs that need neither rotation nor scaling get no -vf at all; the
// codec/container standardization flags still apply.
func videoFilter(plan geometry.Plan) string {
	var filters []string

	switch plan.Rotation {
	case 90:
		filters = append(filters, "transpose=1")
	case 180:
		filters = append(filters, "hflip", "vflip")
	case 270:
		filters = append(filters, "transpose=2")
	}

	if plan.NeedsScale() {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", plan.TargetWidth, plan.TargetHeight))
	}

	return strings.Join(filters, ",")
}
