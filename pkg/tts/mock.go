package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns silent audio of appropriate length.
	SynthesizeFunc func(ctx context.Context, req Request) (*AudioResult, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, streams the SynthesizeFunc result in fixed-size chunks.
	StreamFunc func(ctx context.Context, req Request) (*StreamHandle, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// StreamChunkSize is the chunk size for the default stream (default 960).
	StreamChunkSize int

	// StreamChunkDelay inserts a pause before each default-stream chunk so
	// tests can cancel mid-emission.
	StreamChunkDelay time.Duration

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			// Silent audio, ~20ms per character at 24kHz PCM16. Roughly
			// natural speech pacing for duration-sensitive tests.
			bytesPerChar := 960
			silence := make([]byte, len(req.Text)*bytesPerChar)

			return &AudioResult{
				Audio: silence,
				Format: AudioFormat{
					Encoding:   EncodingPCM24,
					SampleRate: 24000,
					Channels:   1,
					BitDepth:   16,
				},
				CharCount: len(req.Text),
				LatencyMs: 10,
				Duration:  time.Duration(len(req.Text)) * 20 * time.Millisecond,
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	m.recordCall("Synthesize", req.Text)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Stream calls StreamFunc and records the call. The default stream chunks
// the Synthesize result through a real StreamHandle so cancellation
// semantics match production providers.
func (m *Mock) Stream(ctx context.Context, req Request) (*StreamHandle, error) {
	m.recordCall("Stream", req.Text)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	if m.SynthesizeFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}

	result, err := m.SynthesizeFunc(ctx, req)
	if err != nil {
		return nil, err
	}

	chunkSize := m.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = 960
	}
	delay := m.StreamChunkDelay

	handle := newStreamHandle(result.Format, nil)
	go func() {
		audio := result.Audio
		for len(audio) > 0 {
			if delay > 0 {
				time.Sleep(delay)
			}
			n := chunkSize
			if n > len(audio) {
				n = len(audio)
			}
			if !handle.emit(audio[:n]) {
				return
			}
			audio = audio[n:]
		}
		handle.finish()
	}()

	return handle, nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Text:   text,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithFailure returns a mock that always returns the given error.
func WithFailure(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			return nil, err
		},
		StreamFunc: func(ctx context.Context, req Request) (*StreamHandle, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
