package transcode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout indicates the external tool exceeded the configured
// wall-clock budget and was killed.
var ErrTimeout = errors.New("transcode timed out")

// ExitError wraps a tool failure together with its captured stderr so
// diagnostics survive into dead-letter records.
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	msg := e.Err.Error()
	if s := strings.TrimSpace(e.Stderr); s != "" {
		if len(s) > 2048 {
			s = s[len(s)-2048:]
		}
		msg = fmt.Sprintf("%s: %s", msg, s)
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// IsUnknownEncoder reports whether the failure was ffmpeg rejecting the
// requested encoder, meaning the next codec in the fallback list should
// be tried.
func IsUnknownEncoder(err error) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(exitErr.Stderr, "Unknown encoder") ||
		strings.Contains(exitErr.Stderr, "Encoder not found")
}

// Diagnostics extracts the captured tool output from err, if any.
func Diagnostics(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Stderr
	}
	return ""
}
