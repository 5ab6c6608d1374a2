package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"media-pipeline/internal/logging"
)

// Strategy selector values.
const (
	StrategyDirect  = "direct"
	StrategyWrapped = "wrapped"
)

// Duration wraps time.Duration so timeouts can be written as "10m" in
// the YAML file.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all pipeline configuration. Values come from an optional
// YAML file with environment variables taking precedence.
type Config struct {
	// Filesystem layout
	IncomingDir  string `yaml:"incoming_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	ThumbnailDir string `yaml:"thumbnail_dir"`
	TempDir      string `yaml:"temp_dir"`

	// Output geometry and quality
	MaxWidth     int      `yaml:"max_width"`
	MaxHeight    int      `yaml:"max_height"`
	CRF          int      `yaml:"crf"`
	Preset       string   `yaml:"preset"`
	VideoCodecs  []string `yaml:"video_codecs"` // ordered fallback list
	AudioCodecs  []string `yaml:"audio_codecs"` // ordered fallback list
	AudioBitrate string   `yaml:"audio_bitrate"`

	// Job execution
	Strategy                      string   `yaml:"strategy"`
	JobTimeout                    Duration `yaml:"job_timeout"`
	ProbeTimeout                  Duration `yaml:"probe_timeout"`
	MaxAttempts                   int      `yaml:"max_attempts"`
	Workers                       int      `yaml:"workers"`
	DeleteOriginalAfterProcessing bool     `yaml:"delete_original_after_processing"`

	// Thumbnails
	ThumbnailTimestamp    float64  `yaml:"thumbnail_timestamp"`
	ThumbnailWidth        int      `yaml:"thumbnail_width"`
	ThumbnailHeight       int      `yaml:"thumbnail_height"`
	ThumbnailTimeout      Duration `yaml:"thumbnail_timeout"`
	ThumbnailFailureFatal bool     `yaml:"thumbnail_failure_fatal"`

	// External tools
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Queue broker
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	QueuePrefix   string `yaml:"queue_prefix"`

	// Operations endpoint
	MetricsPort string `yaml:"metrics_port"`

	// Scratch hygiene
	TempSweepInterval Duration `yaml:"temp_sweep_interval"`
	TempMaxAge        Duration `yaml:"temp_max_age"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		IncomingDir:  "/data/incoming",
		ProcessedDir: "/data/processed",
		ThumbnailDir: "/data/thumbnails",
		TempDir:      "/data/tmp",

		MaxWidth:     1920,
		MaxHeight:    1920,
		CRF:          23,
		Preset:       "fast",
		VideoCodecs:  []string{"libx264", "libopenh264", "mpeg4"},
		AudioCodecs:  []string{"aac", "libmp3lame"},
		AudioBitrate: "128k",

		Strategy:     StrategyDirect,
		JobTimeout:   Duration(10 * time.Minute),
		ProbeTimeout: Duration(30 * time.Second),
		MaxAttempts:  3,
		Workers:      0, // 0 = sized from available CPUs

		ThumbnailTimestamp: 1.0,
		ThumbnailWidth:     480,
		ThumbnailHeight:    480,
		ThumbnailTimeout:   Duration(time.Minute),

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		RedisAddr:   "localhost:6379",
		QueuePrefix: "media",

		MetricsPort: "9090",

		TempSweepInterval: Duration(time.Hour),
		TempMaxAge:        Duration(24 * time.Hour),
	}
}

// Load reads configuration from path (skipped if empty or missing),
// applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			logging.Warn("Config file %s not found, using defaults", path)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.IncomingDir, "INCOMING_DIR")
	setString(&c.ProcessedDir, "PROCESSED_DIR")
	setString(&c.ThumbnailDir, "THUMBNAIL_DIR")
	setString(&c.TempDir, "TEMP_DIR")

	setInt(&c.MaxWidth, "MAX_WIDTH")
	setInt(&c.MaxHeight, "MAX_HEIGHT")
	setInt(&c.CRF, "VIDEO_CRF")
	setString(&c.Preset, "FFMPEG_PRESET")
	setString(&c.AudioBitrate, "AUDIO_BITRATE")

	setString(&c.Strategy, "TRANSCODE_STRATEGY")
	setDuration(&c.JobTimeout, "JOB_TIMEOUT")
	setDuration(&c.ProbeTimeout, "PROBE_TIMEOUT")
	setInt(&c.MaxAttempts, "MAX_ATTEMPTS")
	setInt(&c.Workers, "PIPELINE_WORKERS")
	setBool(&c.DeleteOriginalAfterProcessing, "DELETE_ORIGINAL")

	setFloat(&c.ThumbnailTimestamp, "THUMBNAIL_TIMESTAMP")
	setInt(&c.ThumbnailWidth, "THUMBNAIL_WIDTH")
	setInt(&c.ThumbnailHeight, "THUMBNAIL_HEIGHT")
	setDuration(&c.ThumbnailTimeout, "THUMBNAIL_TIMEOUT")
	setBool(&c.ThumbnailFailureFatal, "THUMBNAIL_FAILURE_FATAL")

	setString(&c.FFmpegPath, "FFMPEG_PATH")
	setString(&c.FFprobePath, "FFPROBE_PATH")

	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.QueuePrefix, "QUEUE_PREFIX")

	setString(&c.MetricsPort, "METRICS_PORT")
}

func (c *Config) validate() error {
	if c.Strategy != StrategyDirect && c.Strategy != StrategyWrapped {
		return fmt.Errorf("unknown transcode strategy %q (want %q or %q)", c.Strategy, StrategyDirect, StrategyWrapped)
	}
	if len(c.VideoCodecs) == 0 {
		return fmt.Errorf("video_codecs must name at least one codec")
	}
	if len(c.AudioCodecs) == 0 {
		return fmt.Errorf("audio_codecs must name at least one codec")
	}
	if c.MaxWidth < 0 || c.MaxHeight < 0 {
		return fmt.Errorf("max bounds must not be negative")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	for _, dir := range []string{c.IncomingDir, c.ProcessedDir, c.ThumbnailDir, c.TempDir} {
		if dir == "" {
			return fmt.Errorf("all pipeline directories must be configured")
		}
	}
	return nil
}

// EnsureDirs creates the pipeline directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.IncomingDir, c.ProcessedDir, c.ThumbnailDir, c.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		} else {
			logging.Warn("Ignoring unparseable %s=%q", key, v)
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		} else {
			logging.Warn("Ignoring unparseable %s=%q", key, v)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		} else {
			logging.Warn("Ignoring unparseable %s=%q", key, v)
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = Duration(parsed)
		} else {
			logging.Warn("Ignoring unparseable %s=%q", key, v)
		}
	}
}
