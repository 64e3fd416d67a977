package format_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/audio"
	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/format"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "format-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, format.Validate("wav"))
	require.NoError(t, format.Validate("MP3"))
	require.NoError(t, format.Validate("ogg"))

	err := format.Validate("flac")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	err = format.Validate("")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestConvertWAVIsPassthrough(t *testing.T) {
	t.Parallel()

	wavBytes, err := audio.EncodeMono(make([]int, 2205), 22050)
	require.NoError(t, err)

	converter := format.NewConverter("ffmpeg", testLogger(t))

	out, err := converter.Convert(context.Background(), wavBytes, "wav")
	require.NoError(t, err)
	assert.Equal(t, wavBytes, out)
}

func TestConvertRejectsUnsupportedFormatBeforeRunning(t *testing.T) {
	t.Parallel()

	// A nonexistent executable proves validation happens first.
	converter := format.NewConverter("/nonexistent/ffmpeg", testLogger(t))

	_, err := converter.Convert(context.Background(), []byte("wav"), "flac")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestConvertMP3(t *testing.T) {
	t.Parallel()

	if _, lookErr := exec.LookPath("ffmpeg"); lookErr != nil {
		t.Skip("ffmpeg not installed")
	}

	wavBytes, err := audio.EncodeMono(make([]int, 22050), 22050)
	require.NoError(t, err)

	converter := format.NewConverter("ffmpeg", testLogger(t))

	out, err := converter.Convert(context.Background(), wavBytes, "mp3")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.NotEqual(t, wavBytes, out)
}
