package core

import "errors"

// Error taxonomy for the synthesis pipeline. Each sentinel maps to a
// distinct externally observable failure class; callers classify with
// errors.Is and never by message text.
var (
	// ErrVoiceNotFound indicates the requested voice id is not in the catalog.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrUnsupportedFormat indicates the requested output format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmptyText indicates the synthesis text is empty or whitespace-only.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrUnknownProvider indicates no engine factory is registered under the name.
	ErrUnknownProvider = errors.New("unknown engine provider")
	// ErrEngineFailure wraps an underlying subprocess or model failure.
	ErrEngineFailure = errors.New("engine synthesis failed")
	// ErrFallbackExhausted indicates the primary engine failed and no
	// fallback candidate existed, or the fallback itself failed.
	ErrFallbackExhausted = errors.New("fallback exhausted")
	// ErrResampleUnavailable indicates resampling was required but the
	// waveform could not be processed; hard failure only in the
	// in-process engine path.
	ErrResampleUnavailable = errors.New("resampling unavailable")
	// ErrCacheMiss indicates a cache load for an absent entry.
	ErrCacheMiss = errors.New("cache miss")
	// ErrTimeout indicates the request exceeded the configured global timeout.
	ErrTimeout = errors.New("synthesis timed out")
)
