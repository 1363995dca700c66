package tts

import (
	"sync"
	"sync/atomic"
)

// StreamState is the lifecycle state of a streaming synthesis handle.
type StreamState int32

const (
	// StreamPending means synthesis has started but no audio has arrived.
	StreamPending StreamState = iota

	// StreamActive means chunks are being emitted.
	StreamActive

	// StreamDone means the producer delivered all audio.
	StreamDone

	// StreamCancelled means the consumer cancelled or an error forced
	// cancellation; no further chunks will be observed.
	StreamCancelled
)

// String returns a human-readable stream state.
func (s StreamState) String() string {
	switch s {
	case StreamPending:
		return "pending"
	case StreamActive:
		return "active"
	case StreamDone:
		return "done"
	case StreamCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StreamHandle is a cancellable streaming synthesis response.
//
// The cancellation flag is the single source of truth: it is checked before
// every chunk emission and before every Read, so once Cancel returns, the
// consumer observes zero further chunks and the producer's fetch loop
// terminates within one chunk-read cycle. Cancel is safe to call
// concurrently with in-flight emission and is a no-op on a completed or
// already-cancelled stream.
type StreamHandle struct {
	chunks chan []byte
	format AudioFormat

	state     atomic.Int32
	cancelled atomic.Bool
	done      chan struct{}

	cancelOnce sync.Once
	onCancel   func()

	errMu sync.Mutex
	err   error
}

// newStreamHandle creates a handle. onCancel, if non-nil, is invoked exactly
// once when the stream is cancelled and must close the underlying transport.
func newStreamHandle(format AudioFormat, onCancel func()) *StreamHandle {
	return &StreamHandle{
		chunks:   make(chan []byte, 32),
		format:   format,
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// Read returns the next audio chunk. It returns (nil, nil) when the stream
// completed normally, (nil, ErrStreamCancelled) after cancellation, and
// (nil, err) when the producer failed.
func (h *StreamHandle) Read() ([]byte, error) {
	if h.cancelled.Load() {
		if err := h.takeErr(); err != nil {
			return nil, err
		}
		return nil, ErrStreamCancelled
	}

	select {
	case <-h.done:
		if err := h.takeErr(); err != nil {
			return nil, err
		}
		return nil, ErrStreamCancelled
	case chunk, ok := <-h.chunks:
		// Re-check after the receive: Cancel may have won a race with an
		// in-flight emission and no chunk may be delivered past it.
		if h.cancelled.Load() {
			if err := h.takeErr(); err != nil {
				return nil, err
			}
			return nil, ErrStreamCancelled
		}
		if !ok {
			return nil, h.takeErr()
		}
		return chunk, nil
	}
}

// Cancel stops the stream. No chunk is delivered after Cancel returns, and
// the underlying transport is closed. Calling Cancel on a completed or
// already-cancelled stream is a safe no-op.
func (h *StreamHandle) Cancel() {
	h.cancelOnce.Do(func() {
		h.cancelled.Store(true)
		if h.State() != StreamDone {
			h.state.Store(int32(StreamCancelled))
		}
		close(h.done)
		if h.onCancel != nil {
			h.onCancel()
		}
	})
}

// Close is an alias for Cancel so the handle satisfies io.Closer-shaped
// cleanup paths.
func (h *StreamHandle) Close() error {
	h.Cancel()
	return nil
}

// State returns the current lifecycle state.
func (h *StreamHandle) State() StreamState {
	return StreamState(h.state.Load())
}

// Format returns the audio format metadata.
func (h *StreamHandle) Format() AudioFormat {
	return h.format
}

// Err returns the producer error, if any, once the stream has finished.
func (h *StreamHandle) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

// emit delivers one chunk to the consumer. It returns false once the stream
// is cancelled; producers must stop their fetch loop when that happens.
func (h *StreamHandle) emit(chunk []byte) bool {
	if h.cancelled.Load() {
		return false
	}
	select {
	case <-h.done:
		return false
	case h.chunks <- chunk:
		h.state.CompareAndSwap(int32(StreamPending), int32(StreamActive))
		return true
	}
}

// finish marks normal completion. No-op if already cancelled.
func (h *StreamHandle) finish() {
	if h.cancelled.Load() {
		return
	}
	h.state.Store(int32(StreamDone))
	close(h.chunks)
}

// fail records a producer error and cancels the stream, per the error
// propagation policy: a streaming failure triggers automatic cancellation.
func (h *StreamHandle) fail(err error) {
	h.errMu.Lock()
	if h.err == nil {
		h.err = err
	}
	h.errMu.Unlock()
	h.Cancel()
}

// takeErr returns the recorded producer error, if any.
func (h *StreamHandle) takeErr() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}
