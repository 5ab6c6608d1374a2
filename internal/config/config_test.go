package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Strategy != StrategyDirect {
		t.Errorf("Expected default strategy %q, got %q", StrategyDirect, cfg.Strategy)
	}

	if cfg.JobTimeout.Std() != 10*time.Minute {
		t.Errorf("Expected default job timeout 10m, got %v", cfg.JobTimeout.Std())
	}

	if cfg.ProbeTimeout.Std() != 30*time.Second {
		t.Errorf("Expected default probe timeout 30s, got %v", cfg.ProbeTimeout.Std())
	}

	if len(cfg.VideoCodecs) == 0 {
		t.Error("Expected default video codec fallback list")
	}

	if cfg.VideoCodecs[0] != "libx264" {
		t.Errorf("Expected libx264 as preferred codec, got %s", cfg.VideoCodecs[0])
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
incoming_dir: /srv/in
processed_dir: /srv/out
thumbnail_dir: /srv/thumbs
temp_dir: /srv/tmp
max_width: 1280
max_height: 720
strategy: wrapped
job_timeout: 5m
max_attempts: 5
video_codecs: ["libx265", "libx264"]
thumbnail_failure_fatal: true
delete_original_after_processing: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.IncomingDir != "/srv/in" {
		t.Errorf("Expected incoming dir /srv/in, got %s", cfg.IncomingDir)
	}

	if cfg.MaxWidth != 1280 || cfg.MaxHeight != 720 {
		t.Errorf("Expected bounds 1280x720, got %dx%d", cfg.MaxWidth, cfg.MaxHeight)
	}

	if cfg.Strategy != StrategyWrapped {
		t.Errorf("Expected strategy wrapped, got %s", cfg.Strategy)
	}

	if cfg.JobTimeout.Std() != 5*time.Minute {
		t.Errorf("Expected job timeout 5m, got %v", cfg.JobTimeout.Std())
	}

	if cfg.MaxAttempts != 5 {
		t.Errorf("Expected max attempts 5, got %d", cfg.MaxAttempts)
	}

	if len(cfg.VideoCodecs) != 2 || cfg.VideoCodecs[0] != "libx265" {
		t.Errorf("Expected codec list override, got %v", cfg.VideoCodecs)
	}

	if !cfg.ThumbnailFailureFatal {
		t.Error("Expected thumbnail_failure_fatal=true")
	}

	if !cfg.DeleteOriginalAfterProcessing {
		t.Error("Expected delete_original_after_processing=true")
	}

	// Unset file values keep defaults
	if cfg.CRF != 23 {
		t.Errorf("Expected default CRF 23, got %d", cfg.CRF)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_width: 1280\nredis_addr: file:6379\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("MAX_WIDTH", "640")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("JOB_TIMEOUT", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxWidth != 640 {
		t.Errorf("Expected env override 640, got %d", cfg.MaxWidth)
	}

	if cfg.RedisAddr != "env:6379" {
		t.Errorf("Expected env override for redis addr, got %s", cfg.RedisAddr)
	}

	if cfg.JobTimeout.Std() != 90*time.Second {
		t.Errorf("Expected env override 90s, got %v", cfg.JobTimeout.Std())
	}
}

func TestEnvIgnoresUnparseable(t *testing.T) {
	t.Setenv("MAX_WIDTH", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxWidth != 1920 {
		t.Errorf("Expected default 1920 for unparseable override, got %d", cfg.MaxWidth)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Unknown strategy", func(c *Config) { c.Strategy = "sidecar" }},
		{"Empty codec list", func(c *Config) { c.VideoCodecs = nil }},
		{"Empty audio codec list", func(c *Config) { c.AudioCodecs = nil }},
		{"Zero timeout", func(c *Config) { c.JobTimeout = 0 }},
		{"Zero probe timeout", func(c *Config) { c.ProbeTimeout = 0 }},
		{"Zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"Missing directory", func(c *Config) { c.TempDir = "" }},
		{"Negative bounds", func(c *Config) { c.MaxWidth = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			if err := cfg.validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxWidth != 1920 {
		t.Errorf("Expected defaults for missing file, got max width %d", cfg.MaxWidth)
	}
}
