package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"media-pipeline/internal/logging"
)

// run executes cmd with a hard wall-clock timeout. The child is killed
// on timeout or context cancellation and the kill is always followed by
// a Wait, so no zombie is left behind regardless of outcome. Stderr is
// captured for diagnostics unless the caller already attached one.
func run(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timedOut <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timedOut = timer.C
	}

	select {
	case err := <-done:
		if err != nil {
			return &ExitError{Err: err, Stderr: stderr.String()}
		}
		return nil
	case <-timedOut:
		logging.Warn("Killing %s after %v timeout", cmd.Path, timeout)
		_ = cmd.Process.Kill()
		<-done
		return &ExitError{Err: ErrTimeout, Stderr: stderr.String()}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}
