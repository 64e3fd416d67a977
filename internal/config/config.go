// Package config provides the configuration structure for the voice-service.
package config

import (
	"fmt"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Default values applied by Normalize when the TOML document leaves a
// field unset.
const (
	defaultBaselineProvider = "piper"
	defaultMaxCacheBytes    = 512 * 1024 * 1024
	defaultPiperExecutable  = "piper"
	defaultFFmpegExecutable = "ffmpeg"
	defaultModelPoolSize    = 4
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	SynthesisSubject         string `toml:"synthesis_subject"`
	AudioCreatedSubject      string `toml:"audio_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	TextObjectStoreBucket    string `toml:"text_object_store_bucket"`
	SynthesisStreamName      string `toml:"synthesis_stream_name"`
	SynthesisConsumerName    string `toml:"synthesis_consumer_name"`
	HandleMessageTimeoutSecs int    `toml:"handle_message_timeout_seconds"`
}

// SynthesisConfig holds the pipeline configuration: catalog location,
// fallback policy, prosody, and engine executables.
type SynthesisConfig struct {
	VoicesPath       string  `toml:"voices_path"`
	LegacyVoicesPath string  `toml:"legacy_voices_path"`
	BaselineProvider string  `toml:"baseline_provider"`
	EnableFallback   bool    `toml:"enable_fallback"`
	EnableProsody    bool    `toml:"enable_prosody"`
	NormalizeNumbers bool    `toml:"normalize_numbers"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	PiperExecutable  string  `toml:"piper_executable"`
	FFmpegExecutable string  `toml:"ffmpeg_executable"`
	RemoteEngineURL  string  `toml:"remote_engine_url"`
	ModelPoolSize    int     `toml:"model_pool_size"`
	ForceGPU         *bool   `toml:"force_gpu"`
	DefaultNoiseW    float64 `toml:"default_noise_w"`
}

// CacheConfig holds the on-disk audio cache settings.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	MaxBytes int64  `toml:"max_bytes"`
	Enabled  bool   `toml:"enabled"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Cache     CacheConfig     `toml:"cache"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the voice-service and applies defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.Normalize()

	return &cfg, nil
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.Synthesis.BaselineProvider == "" {
		c.Synthesis.BaselineProvider = defaultBaselineProvider
	}

	if c.Synthesis.PiperExecutable == "" {
		c.Synthesis.PiperExecutable = defaultPiperExecutable
	}

	if c.Synthesis.FFmpegExecutable == "" {
		c.Synthesis.FFmpegExecutable = defaultFFmpegExecutable
	}

	if c.Synthesis.ModelPoolSize <= 0 {
		c.Synthesis.ModelPoolSize = defaultModelPoolSize
	}

	if c.Cache.MaxBytes <= 0 {
		c.Cache.MaxBytes = defaultMaxCacheBytes
	}
}

// Timeout returns the configured global request timeout, or zero if the
// timeout is disabled.
func (c *SynthesisConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}

	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HandleMessageTimeout returns the per-message processing timeout, or
// zero to let the worker apply its default.
func (c *NATSConfig) HandleMessageTimeout() time.Duration {
	if c.HandleMessageTimeoutSecs <= 0 {
		return 0
	}

	return time.Duration(c.HandleMessageTimeoutSecs) * time.Second
}
