// Package config_test tests the configuration loading for the voice-service.
package config_test

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/config"
)

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[nats]
url = "nats://127.0.0.1:4222"
synthesis_subject = "synthesis.requested"
audio_created_subject = "synthesis.audio.created"
audio_object_store_bucket = "AUDIO_FILES"
text_object_store_bucket = "TEXT_FILES"

[synthesis]
voices_path = "voices.json"
baseline_provider = "piper"
enable_fallback = true
enable_prosody = true
timeout_seconds = 120

[cache]
dir = "/var/cache/voice-service"
max_bytes = 1048576
enabled = true

[paths]
base_logs_dir = "/var/log/voice-service"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	cfg.Normalize()

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "synthesis.requested", cfg.NATS.SynthesisSubject)
	assert.Equal(t, "synthesis.audio.created", cfg.NATS.AudioCreatedSubject)
	assert.Equal(t, "AUDIO_FILES", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "voices.json", cfg.Synthesis.VoicesPath)
	assert.Equal(t, "piper", cfg.Synthesis.BaselineProvider)
	assert.True(t, cfg.Synthesis.EnableFallback)
	assert.True(t, cfg.Synthesis.EnableProsody)
	assert.Equal(t, 2*time.Minute, cfg.Synthesis.Timeout())
	assert.Equal(t, int64(1048576), cfg.Cache.MaxBytes)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/var/log/voice-service", cfg.Paths.BaseLogsDir)
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	cfg.Normalize()

	assert.Equal(t, "piper", cfg.Synthesis.BaselineProvider)
	assert.Equal(t, "piper", cfg.Synthesis.PiperExecutable)
	assert.Equal(t, "ffmpeg", cfg.Synthesis.FFmpegExecutable)
	assert.Equal(t, 4, cfg.Synthesis.ModelPoolSize)
	assert.Positive(t, cfg.Cache.MaxBytes)
	assert.Equal(t, time.Duration(0), cfg.Synthesis.Timeout())
}
