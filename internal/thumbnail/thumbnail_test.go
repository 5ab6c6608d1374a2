package thumbnail

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	e := New("", "/tmp/scratch", 1.5, 320, 320, time.Minute)

	if e.binary != "ffmpeg" {
		t.Errorf("Expected default binary ffmpeg, got %s", e.binary)
	}

	if e.width != 320 || e.height != 320 {
		t.Errorf("Expected 320x320 bounds, got %dx%d", e.width, e.height)
	}
}

func TestClampTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		timestamp float64
		duration  float64
		expected  float64
	}{
		{"Within duration", 1.0, 60.0, 1.0},
		{"At duration", 60.0, 60.0, 60.0},
		{"Past duration clamps to midpoint", 5.0, 2.0, 1.0},
		{"Negative clamps to zero", -3.0, 60.0, 0},
		{"Unknown duration passes through", 5.0, 0, 5.0},
		{"Zero timestamp", 0, 60.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampTimestamp(tt.timestamp, tt.duration); got != tt.expected {
				t.Errorf("clampTimestamp(%v, %v) = %v, want %v", tt.timestamp, tt.duration, got, tt.expected)
			}
		})
	}
}
