package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"media-pipeline/internal/logging"
)

// Parse failures and missing streams are permanent: a file that cannot
// be probed cannot be transcoded correctly.
var (
	// ErrNoVideoStream indicates the container holds no video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrMalformedOutput indicates ffprobe produced output that could
	// not be interpreted.
	ErrMalformedOutput = errors.New("malformed ffprobe output")
)

// Descriptor holds the probed properties of a media file. Width and
// Height are always the storage dimensions reported by the container;
// Rotation carries the raw (possibly negative) rotation metadata and is
// normalized later by the geometry resolver.
type Descriptor struct {
	Width      int
	Height     int
	Rotation   int
	Duration   float64
	VideoCodec string
	AudioCodec string
}

// Prober inspects media files using ffprobe.
type Prober struct {
	binary  string
	timeout time.Duration
}

// New creates a Prober that invokes the given ffprobe binary. timeout
// bounds each invocation; a probe normally finishes in well under a
// second, so a hung ffprobe must never hold a worker.
func New(binary string, timeout time.Duration) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, timeout: timeout}
}

// Probe inspects the file at path and returns its media descriptor.
func (p *Prober) Probe(ctx context.Context, path string) (*Descriptor, error) {
	if info, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input not readable: %w", err)
	} else if info.Size() == 0 {
		return nil, fmt.Errorf("input %s is empty: %w", path, ErrMalformedOutput)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	return parseOutput(stdout.Bytes())
}

// ffprobe -print_format json document structure, limited to the fields
// the pipeline consumes.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
	SideDataList []probeSideData   `json:"side_data_list"`
}

type probeSideData struct {
	SideDataType string      `json:"side_data_type"`
	Rotation     json.Number `json:"rotation"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

func parseOutput(data []byte) (*Descriptor, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var video *probeStream
	audioCodec := ""
	for i := range out.Streams {
		switch out.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &out.Streams[i]
			}
		case "audio":
			if audioCodec == "" {
				audioCodec = out.Streams[i].CodecName
			}
		}
	}

	if video == nil {
		return nil, ErrNoVideoStream
	}

	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("%w: video stream reports %dx%d", ErrMalformedOutput, video.Width, video.Height)
	}

	desc := &Descriptor{
		Width:      video.Width,
		Height:     video.Height,
		Rotation:   extractRotation(video),
		Duration:   parseDuration(out.Format.Duration, video.Duration),
		VideoCodec: video.CodecName,
		AudioCodec: audioCodec,
	}

	return desc, nil
}

// extractRotation reads rotation metadata from the video stream. The
// stream-level rotate tag takes priority; the Display Matrix side data
// entry is the fallback. Values are returned raw; a tag of -90 is
// reduced to 270 by the geometry resolver, not here.
func extractRotation(s *probeStream) int {
	tagRotation, hasTag := 0, false
	if raw, ok := s.Tags["rotate"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			tagRotation, hasTag = v, true
		} else {
			logging.Warn("Unparseable rotate tag %q ignored", raw)
		}
	}

	matrixRotation, hasMatrix := 0, false
	for _, sd := range s.SideDataList {
		if sd.SideDataType != "Display Matrix" || sd.Rotation == "" {
			continue
		}
		if v, err := sd.Rotation.Float64(); err == nil {
			matrixRotation, hasMatrix = int(math.Round(v)), true
		}
		break
	}

	if hasTag {
		if hasMatrix && matrixRotation != tagRotation {
			logging.Warn("Rotation conflict: rotate tag %d vs display matrix %d, using tag", tagRotation, matrixRotation)
		}
		return tagRotation
	}
	if hasMatrix {
		return matrixRotation
	}
	return 0
}

// parseDuration prefers the container-level duration and falls back to
// the stream duration. Streams in fragmented containers often omit it.
func parseDuration(formatDuration, streamDuration string) float64 {
	for _, raw := range []string{formatDuration, streamDuration} {
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	return 0
}
