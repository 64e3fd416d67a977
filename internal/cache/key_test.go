package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/voice-service/internal/cache"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestKeysAreDeterministic(t *testing.T) {
	t.Parallel()

	first := cache.LegacyKey("Hola mundo", "piper-es-ES-1", 22050, "wav")
	second := cache.LegacyKey("Hola mundo", "piper-es-ES-1", 22050, "wav")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "keys are hex-encoded SHA-256 digests")

	v3a := cache.KeyV3("Hola mundo", "piper", "m.onnx", "piper-es-ES-1", 22050, "wav",
		floatPtr(1.1), floatPtr(2.0), floatPtr(1.1))
	v3b := cache.KeyV3("Hola mundo", "piper", "m.onnx", "piper-es-ES-1", 22050, "wav",
		floatPtr(1.1), floatPtr(2.0), floatPtr(1.1))

	assert.Equal(t, v3a, v3b)
}

func TestTextIsTrimmedBeforeHashing(t *testing.T) {
	t.Parallel()

	trimmed := cache.LegacyKey("Hola mundo", "piper-es-ES-1", 22050, "wav")
	padded := cache.LegacyKey("  Hola mundo \n", "piper-es-ES-1", 22050, "wav")

	assert.Equal(t, trimmed, padded)
}

func TestEachDefiningFieldChangesTheKey(t *testing.T) {
	t.Parallel()

	base := cache.KeyV2("Hola", "piper", "m.onnx", "v1", 22050, "wav")

	assert.NotEqual(t, base, cache.KeyV2("Adiós", "piper", "m.onnx", "v1", 22050, "wav"))
	assert.NotEqual(t, base, cache.KeyV2("Hola", "coqui", "m.onnx", "v1", 22050, "wav"))
	assert.NotEqual(t, base, cache.KeyV2("Hola", "piper", "other.onnx", "v1", 22050, "wav"))
	assert.NotEqual(t, base, cache.KeyV2("Hola", "piper", "m.onnx", "v2", 22050, "wav"))
	assert.NotEqual(t, base, cache.KeyV2("Hola", "piper", "m.onnx", "v1", 44100, "wav"))
	assert.NotEqual(t, base, cache.KeyV2("Hola", "piper", "m.onnx", "v1", 22050, "mp3"))
}

func TestGenerationsDeriveDistinctKeys(t *testing.T) {
	t.Parallel()

	legacy := cache.LegacyKey("Hola", "v1", 22050, "wav")
	keyV2 := cache.KeyV2("Hola", "piper", "m.onnx", "v1", 22050, "wav")
	keyV3 := cache.KeyV3("Hola", "piper", "m.onnx", "v1", 22050, "wav", nil, nil, nil)

	assert.NotEqual(t, legacy, keyV2)
	assert.NotEqual(t, keyV2, keyV3)
	assert.NotEqual(t, legacy, keyV3)
}

func TestUnsetProsodyDiffersFromExplicitZero(t *testing.T) {
	t.Parallel()

	unset := cache.KeyV3("Hola", "piper", "m.onnx", "v1", 22050, "wav", nil, nil, nil)
	zeroed := cache.KeyV3("Hola", "piper", "m.onnx", "v1", 22050, "wav",
		floatPtr(0), floatPtr(0), floatPtr(0))

	assert.NotEqual(t, unset, zeroed)
}
