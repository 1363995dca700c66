package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL  = "wss://api.elevenlabs.io/v1/text-to-speech"
	providerElevenLabsWS = "elevenlabs_ws"
	wsHandshakeTimeout   = 10 * time.Second
)

// ElevenLabsWS implements Provider over the ElevenLabs streaming-input
// WebSocket API. Each Stream call dials a fresh connection for one
// utterance: the text is sent followed by an end-of-stream marker, and
// audio chunks are delivered through the handle until the server signals
// the final chunk. Cancelling the handle closes the socket, which ends the
// read loop within one message.
//
// Per-utterance connections keep the cancellation contract simple: an
// interrupted utterance never shares a transport with the next one.
type ElevenLabsWS struct {
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabsWS creates a WebSocket-based streaming synthesis provider.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsWSBaseURL
	}

	return &ElevenLabsWS{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.elevenlabs_ws"),
		baseURL: baseURL,
	}, nil
}

// Synthesize collects a full streaming response into one buffer. Prefer
// Stream for live calls; this exists so the WS provider can serve the
// buffered graceful-close path too.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	start := time.Now()

	handle, err := e.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer handle.Cancel()

	var audio []byte
	var firstByte time.Duration
	for {
		chunk, err := handle.Read()
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}
		if firstByte == 0 {
			firstByte = time.Since(start)
		}
		audio = append(audio, chunk...)
	}

	format := e.outputFormat()
	return &AudioResult{
		Audio:     audio,
		Format:    format,
		CharCount: len(req.Text),
		LatencyMs: firstByte.Milliseconds(),
		Duration:  estimatePCMDuration(len(audio), format.SampleRate),
	}, nil
}

// Stream dials the streaming-input endpoint and returns a cancellable handle.
func (e *ElevenLabsWS) Stream(ctx context.Context, req Request) (*StreamHandle, error) {
	if err := validateRequest(req); err != nil {
		return nil, WrapError(providerElevenLabsWS, err)
	}

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=%s",
		e.baseURL, req.Voice.ProviderVoiceID, e.config.ModelID, string(e.config.OutputFormat))

	headers := http.Header{}
	headers.Set("xi-api-key", e.config.APIKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, WrapError(providerElevenLabsWS,
				fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err))
		}
		return nil, WrapError(providerElevenLabsWS, fmt.Errorf("websocket dial failed: %w", err))
	}

	// Begin-of-stream carries the voice settings, then the utterance, then
	// the end-of-stream marker. The server flushes audio as it synthesizes.
	bos := map[string]interface{}{
		"text": " ",
		"voice_settings": map[string]interface{}{
			"stability":        e.config.Stability,
			"similarity_boost": e.config.Similarity,
			"speed":            req.Voice.Rate,
		},
		"generation_config": map[string]interface{}{
			"chunk_length_schedule": []int{120, 160, 250, 290},
		},
	}
	if err := conn.WriteJSON(bos); err != nil {
		conn.Close()
		return nil, WrapError(providerElevenLabsWS, fmt.Errorf("send BOS: %w", err))
	}
	if err := conn.WriteJSON(map[string]interface{}{"text": req.Text + " "}); err != nil {
		conn.Close()
		return nil, WrapError(providerElevenLabsWS, fmt.Errorf("send text: %w", err))
	}
	if err := conn.WriteJSON(map[string]interface{}{"text": ""}); err != nil {
		conn.Close()
		return nil, WrapError(providerElevenLabsWS, fmt.Errorf("send EOS: %w", err))
	}

	handle := newStreamHandle(e.outputFormat(), func() {
		conn.Close()
	})

	go e.readLoop(conn, handle)

	e.logger.Debug("websocket stream opened",
		"voice", req.Voice.ProviderVoiceID,
		"chars", len(req.Text),
	)

	return handle, nil
}

// readLoop reads audio messages until the server marks the stream final,
// the handle is cancelled, or the connection fails.
func (e *ElevenLabsWS) readLoop(conn *websocket.Conn, handle *StreamHandle) {
	defer conn.Close()

	if deadline := e.config.StreamTimeout; deadline > 0 {
		conn.SetReadDeadline(time.Now().Add(deadline))
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if handle.State() == StreamCancelled {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				handle.finish()
				return
			}
			handle.fail(WrapError(providerElevenLabsWS, fmt.Errorf("read message: %w", err)))
			return
		}

		var resp struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
		}
		if err := json.Unmarshal(message, &resp); err != nil {
			e.logger.Warn("failed to parse response", "error", err)
			continue
		}

		if resp.Audio != "" {
			audio, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				e.logger.Warn("failed to decode audio", "error", err)
				continue
			}
			if !handle.emit(audio) {
				return
			}
		}

		if resp.IsFinal {
			handle.finish()
			return
		}
	}
}

// Health dials the endpoint root to verify connectivity and credentials.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	// The WS API has no dedicated health endpoint; reuse the REST /user check.
	url := elevenLabsBaseURL + "/user"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return WrapError(providerElevenLabsWS, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	client := &http.Client{Timeout: e.config.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabsWS, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "health check failed",
			Provider:   providerElevenLabsWS,
		}
	}
	return nil
}

// Close releases resources. Connections are per-stream, so there is nothing
// long-lived to tear down.
func (e *ElevenLabsWS) Close() error {
	return nil
}

// outputFormat returns the audio format configuration.
func (e *ElevenLabsWS) outputFormat() AudioFormat {
	return AudioFormat{
		Encoding:   e.config.OutputFormat,
		SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
		Channels:   1,
		BitDepth:   16,
	}
}

// Verify ElevenLabsWS implements Provider at compile time.
var _ Provider = (*ElevenLabsWS)(nil)
