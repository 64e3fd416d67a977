package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/fileutil"
)

func TestCacheDirHonorsEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CACHE_DIR", dir)

	assert.Equal(t, dir, fileutil.CacheDir())
}

func TestEnsureDirCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "a", "b")

	err := fileutil.EnsureDir(target)
	require.NoError(t, err)

	info, statErr := os.Stat(target)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())

	// A second call on an existing directory is a no-op.
	require.NoError(t, fileutil.EnsureDir(target))
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", fileutil.FormatFileSize(512))
	assert.Equal(t, "1.0 KB", fileutil.FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", fileutil.FormatFileSize(3*1024*1024/2))
	assert.Equal(t, "2.0 GB", fileutil.FormatFileSize(2*1024*1024*1024))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "es_ES_voz_1.wav", fileutil.SanitizeFilename("es/ES:voz?1.wav"))
	assert.Equal(t, "plain.wav", fileutil.SanitizeFilename("plain.wav"))
}
