// Package format validates output formats and transcodes the canonical
// WAV waveform into the requested container.
//
// The canonical intermediate format is always single-channel 16-bit PCM
// WAV; WAV requests pass through unchanged. Other containers are
// produced by an ffmpeg subprocess, mirroring how the rest of the
// pipeline treats external tools.
package format

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-service/internal/core"
)

// ffmpeg muxer names per output format.
var muxers = map[string]string{
	core.FormatMP3: "mp3",
	core.FormatOGG: "ogg",
}

// codec arguments per output format.
var codecArgs = map[string][]string{
	core.FormatMP3: {"-c:a", "libmp3lame", "-q:a", "4"},
	core.FormatOGG: {"-c:a", "libvorbis", "-q:a", "4"},
}

// Validate rejects formats outside the supported set. It runs before any
// engine work so an unsupported request never dispatches.
func Validate(format string) error {
	switch strings.ToLower(format) {
	case core.FormatWAV, core.FormatMP3, core.FormatOGG:
		return nil
	default:
		return fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
}

// Converter transcodes canonical WAV bytes into a requested container.
type Converter struct {
	ffmpegPath string
	log        *logger.Logger
}

// NewConverter creates a converter that shells out to the given ffmpeg
// executable.
func NewConverter(ffmpegPath string, log *logger.Logger) *Converter {
	return &Converter{
		ffmpegPath: ffmpegPath,
		log:        log,
	}
}

// Convert transcodes wavBytes into the requested format. WAV is a byte
// passthrough.
func (c *Converter) Convert(ctx context.Context, wavBytes []byte, format string) ([]byte, error) {
	format = strings.ToLower(format)

	err := Validate(format)
	if err != nil {
		return nil, err
	}

	if format == core.FormatWAV {
		return wavBytes, nil
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	args = append(args, codecArgs[format]...)
	args = append(args, "-f", muxers[format], "pipe:1")

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(wavBytes)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return nil, fmt.Errorf("ffmpeg transcode to %s failed: %w: %s",
			format, runErr, strings.TrimSpace(stderr.String()))
	}

	c.log.Info("Transcoded %d WAV bytes to %d %s bytes", len(wavBytes), stdout.Len(), format)

	return stdout.Bytes(), nil
}
