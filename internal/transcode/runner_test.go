package transcode

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestRunSuccess(t *testing.T) {
	cmd := exec.Command("true")

	if err := run(context.Background(), cmd, 5*time.Second); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo boom >&2; exit 3")

	err := run(context.Background(), cmd, 5*time.Second)
	if err == nil {
		t.Fatal("Expected error for nonzero exit")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected ExitError, got %T", err)
	}

	if exitErr.Stderr != "boom\n" {
		t.Errorf("Expected captured stderr, got %q", exitErr.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	cmd := exec.Command("sleep", "30")

	start := time.Now()
	err := run(context.Background(), cmd, 100*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}

	if elapsed > 5*time.Second {
		t.Errorf("Expected prompt kill, took %v", elapsed)
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.Command("sleep", "30")

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := run(ctx, cmd, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	cmd := exec.Command("definitely-not-a-real-binary-xyz")

	if err := run(context.Background(), cmd, time.Second); err == nil {
		t.Error("Expected error starting missing binary")
	}
}
