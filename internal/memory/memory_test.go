package memory

import (
	"runtime/debug"
	"testing"
)

func restoreLimit(t *testing.T) {
	t.Helper()
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })
}

func TestConfigureFromEnvUnset(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("Expected Configured=false with no environment")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected source %q, got %q", sourceNone, result.Source)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_RATIO", "")
	t.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("Expected Configured=true")
	}
	if result.Source != sourceMemoryLimit {
		t.Errorf("Expected source %q, got %q", sourceMemoryLimit, result.Source)
	}
	if result.Ratio != DefaultRatio {
		t.Errorf("Expected default ratio %v, got %v", DefaultRatio, result.Ratio)
	}

	want := int64(float64(1073741824) * DefaultRatio)
	if result.GoMemLimit != want {
		t.Errorf("Expected GoMemLimit %d, got %d", want, result.GoMemLimit)
	}
	if got := debug.SetMemoryLimit(-1); got != want {
		t.Errorf("Expected runtime limit %d, got %d", want, got)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1000000000")
	t.Setenv("MEMORY_RATIO", "0.5")

	result := ConfigureFromEnv()

	if result.Ratio != 0.5 {
		t.Errorf("Expected ratio 0.5, got %v", result.Ratio)
	}
	if result.GoMemLimit != 500000000 {
		t.Errorf("Expected GoMemLimit 500000000, got %d", result.GoMemLimit)
	}
}

func TestConfigureFromEnvInvalidValues(t *testing.T) {
	restoreLimit(t)

	tests := []struct {
		name  string
		limit string
		ratio string
	}{
		{"garbage limit", "lots", ""},
		{"negative limit", "-1", ""},
		{"zero limit", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Configured {
				t.Errorf("Expected Configured=false for limit %q", tt.limit)
			}
		})
	}

	// Bad ratio falls back to the default rather than failing
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "1.5")

	result := ConfigureFromEnv()
	if !result.Configured {
		t.Fatal("Expected Configured=true despite bad ratio")
	}
	if result.Ratio != DefaultRatio {
		t.Errorf("Expected fallback to default ratio, got %v", result.Ratio)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1073741824, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
