package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/voice-service/internal/core"
)

// API endpoints and headers for the standalone synthesis service.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"

	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// remoteRequest is the JSON payload for the remote synthesis endpoint.
type remoteRequest struct {
	Text        string  `json:"text"`
	Model       string  `json:"model"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	LengthScale float64 `json:"length_scale,omitempty"`
	NoiseScale  float64 `json:"noise_scale,omitempty"`
	NoiseW      float64 `json:"noise_w,omitempty"`
	Speaker     string  `json:"speaker,omitempty"`
}

// remoteError is the structured error body the remote service returns.
type remoteError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// RemoteEngine synthesizes speech through a standalone HTTP synthesis
// service, letting deployments offload heavy models to dedicated hosts.
type RemoteEngine struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewRemoteEngine creates an HTTP-backed engine. The baseURL includes
// protocol and port (e.g. "http://localhost:8000").
func NewRemoteEngine(baseURL string, voice core.Voice, timeout time.Duration) *RemoteEngine {
	return &RemoteEngine{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      voice.Model,
	}
}

// SynthesizeToWAV posts the synthesis request and returns the WAV bytes
// from the response body.
func (e *RemoteEngine) SynthesizeToWAV(
	ctx context.Context,
	textInput string,
	sampleRate int,
	knobs core.EngineKnobs,
) ([]byte, error) {
	trimmed := strings.TrimSpace(textInput)
	if trimmed == "" {
		return nil, core.ErrEmptyText
	}

	payload := remoteRequest{
		Text:        trimmed,
		Model:       e.model,
		SampleRate:  sampleRate,
		LengthScale: knobs.LengthScale,
		NoiseScale:  knobs.NoiseScale,
		NoiseW:      knobs.NoiseW,
		Speaker:     knobs.Speaker,
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %w", core.ErrEngineFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+apiSynthesize,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", core.ErrEngineFailure, err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s failed: %w",
			core.ErrEngineFailure, e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf("%w: unexpected content type: expected %s, got %s",
			core.ErrEngineFailure, contentTypeWAV, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio data: %w", core.ErrEngineFailure, err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: received empty audio data", core.ErrEngineFailure)
	}

	return audioData, nil
}

// Speakers reports nothing; speaker routing is server-side.
func (e *RemoteEngine) Speakers() []string {
	return nil
}

// Close is a no-op; the HTTP client needs no explicit cleanup.
func (e *RemoteEngine) Close() error {
	return nil
}

// HealthCheck verifies the remote service is reachable and healthy.
func (e *RemoteEngine) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error, falling back to
// the raw body so diagnostics are never lost.
func (e *RemoteEngine) parseErrorResponse(resp *http.Response) error {
	var errorResp remoteError

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf("%w: remote service error (%s): %s (code: %s)",
			core.ErrEngineFailure, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf("%w: remote service returned non-OK status: %s, body: %s",
		core.ErrEngineFailure, resp.Status, string(body))
}
