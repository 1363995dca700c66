package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelTurboV2_5 is the fastest English model (~200ms latency).
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelFlashV2_5 is the fastest multilingual model (~150ms latency).
	ModelFlashV2_5 = "eleven_flash_v2_5"

	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabs implements Provider against the ElevenLabs HTTP API. The voice
// ID and prosody come from each Request, so one provider instance serves
// every voice profile across concurrent calls.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs synthesis provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}

	start := time.Now()

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, req.Voice.ProviderVoiceID)

	body, err := json.Marshal(e.buildPayload(req))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}

	e.setHeaders(httpReq)

	resp, err := e.doWithRetry(ctx, httpReq, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read response: %w", err))
	}

	e.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", req.Voice.ProviderVoiceID,
	)

	format := e.outputFormat()
	return &AudioResult{
		Audio:     audio,
		Format:    format,
		CharCount: len(req.Text),
		LatencyMs: latency,
		Duration:  estimatePCMDuration(len(audio), format.SampleRate),
	}, nil
}

// Stream converts text to audio with chunked streaming output. The returned
// handle's Cancel closes the HTTP response body, which terminates the fetch
// loop within one chunk read.
func (e *ElevenLabs) Stream(ctx context.Context, req Request) (*StreamHandle, error) {
	if err := validateRequest(req); err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream", e.baseURL, req.Voice.ProviderVoiceID)

	body, err := json.Marshal(e.buildPayload(req))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	// Streaming requests get their own client with the stream timeout.
	client := &http.Client{Timeout: e.config.StreamTimeout}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}

	e.setHeaders(httpReq)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("stream request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, e.parseError(resp)
	}

	handle := newStreamHandle(e.outputFormat(), func() {
		resp.Body.Close()
	})

	go e.pump(resp.Body, handle)

	return handle, nil
}

// pump copies audio from the response body into the handle, honoring
// cancellation at every chunk boundary.
func (e *ElevenLabs) pump(body io.ReadCloser, handle *StreamHandle) {
	defer body.Close()

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !handle.emit(chunk) {
				return
			}
		}
		if err == io.EOF {
			handle.finish()
			return
		}
		if err != nil {
			// A read error after Cancel is the transport closing; not a failure.
			if handle.State() == StreamCancelled {
				return
			}
			handle.fail(WrapError(providerElevenLabs, fmt.Errorf("read stream: %w", err)))
			return
		}
	}
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/user", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}

	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}

	return nil
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// buildPayload constructs the API request payload from the request's voice
// settings. Rate rides on voice_settings.speed.
func (e *ElevenLabs) buildPayload(req Request) map[string]interface{} {
	return map[string]interface{}{
		"text":     req.Text,
		"model_id": e.config.ModelID,
		"voice_settings": map[string]interface{}{
			"stability":        e.config.Stability,
			"similarity_boost": e.config.Similarity,
			"speed":            req.Voice.Rate,
		},
	}
}

// setHeaders sets required HTTP headers.
func (e *ElevenLabs) setHeaders(req *http.Request) {
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", e.formatToMIME())
}

// doWithRetry performs the request with retry on rate limits and 5xx.
func (e *ElevenLabs) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}

			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerElevenLabs, err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = e.parseError(resp)
			e.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerElevenLabs,
	}
}

// outputFormat returns the audio format configuration.
func (e *ElevenLabs) outputFormat() AudioFormat {
	return AudioFormat{
		Encoding:   e.config.OutputFormat,
		SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
		Channels:   1,
		BitDepth:   16,
	}
}

// formatToMIME converts the encoding to MIME type.
func (e *ElevenLabs) formatToMIME() string {
	switch e.config.OutputFormat {
	case EncodingMP3:
		return "audio/mpeg"
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		return "audio/pcm"
	case EncodingULaw:
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
