package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxline/go-voxline/pkg/tts"
	"github.com/voxline/go-voxline/pkg/voice"
)

func testRequest(text string) tts.Request {
	return tts.Request{
		Text: text,
		Voice: voice.Settings{
			ProviderVoiceID: "test-voice",
			Rate:            1.0,
		},
	}
}

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, testRequest("Hello world"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
		}
	})

	t.Run("Stream returns audio chunks", func(t *testing.T) {
		stream, err := mock.Stream(ctx, testRequest("Test stream"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()

		var total int
		for {
			chunk, err := stream.Read()
			if err != nil {
				t.Fatalf("read error: %v", err)
			}
			if chunk == nil {
				break
			}
			total += len(chunk)
		}
		if total == 0 {
			t.Error("expected streamed audio")
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
		if mock.CallCount("Stream") != 1 {
			t.Errorf("expected 1 Stream call, got %d", mock.CallCount("Stream"))
		}
		last := mock.LastCall()
		if last == nil || last.Method != "Health" {
			t.Errorf("unexpected last call: %+v", last)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestStreamCancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("no chunk is observed after Cancel", func(t *testing.T) {
		mock := tts.NewMock()
		mock.StreamChunkDelay = 5 * time.Millisecond

		stream, err := mock.Stream(ctx, testRequest("a long utterance that spans many chunks of audio"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := stream.Read(); err != nil {
			t.Fatalf("first read failed: %v", err)
		}

		stream.Cancel()

		for i := 0; i < 5; i++ {
			chunk, err := stream.Read()
			if chunk != nil {
				t.Fatalf("chunk delivered after cancel")
			}
			if !errors.Is(err, tts.ErrStreamCancelled) {
				t.Fatalf("expected ErrStreamCancelled, got %v", err)
			}
		}
		if stream.State() != tts.StreamCancelled {
			t.Errorf("expected cancelled state, got %s", stream.State())
		}
	})

	t.Run("Cancel is idempotent", func(t *testing.T) {
		mock := tts.NewMock()
		mock.StreamChunkDelay = 50 * time.Millisecond

		stream, err := mock.Stream(ctx, testRequest("hello"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stream.Cancel()
		stream.Cancel()
		stream.Close()
		if stream.State() != tts.StreamCancelled {
			t.Errorf("expected cancelled state, got %s", stream.State())
		}
	})

	t.Run("Cancel after completion is a no-op", func(t *testing.T) {
		mock := tts.NewMock()
		stream, err := mock.Stream(ctx, testRequest("hi"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for {
			chunk, err := stream.Read()
			if err != nil {
				t.Fatalf("read error: %v", err)
			}
			if chunk == nil {
				break
			}
		}
		if stream.State() != tts.StreamDone {
			t.Fatalf("expected done state, got %s", stream.State())
		}
		stream.Cancel()
		if stream.State() != tts.StreamDone {
			t.Errorf("cancel after completion changed state to %s", stream.State())
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("requires at least one provider", func(t *testing.T) {
		if _, err := tts.NewChain(); err == nil {
			t.Error("expected error for empty chain")
		}
	})

	t.Run("first healthy provider wins", func(t *testing.T) {
		primary := tts.NewMock()
		secondary := tts.NewMock()
		chain, err := tts.NewChain(primary, secondary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := chain.Synthesize(ctx, testRequest("hello")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if primary.CallCount("Synthesize") != 1 {
			t.Error("primary was not used")
		}
		if secondary.CallCount("Synthesize") != 0 {
			t.Error("secondary was used unnecessarily")
		}
	})

	t.Run("falls through to the next provider", func(t *testing.T) {
		failing := tts.WithFailure(errors.New("boom"))
		backup := tts.NewMock()
		chain, err := tts.NewChain(failing, backup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := chain.Synthesize(ctx, testRequest("hello"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio from backup")
		}
	})

	t.Run("aggregates errors when all fail", func(t *testing.T) {
		chain, err := tts.NewChain(
			tts.WithFailure(errors.New("first")),
			tts.WithFailure(errors.New("second")),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = chain.Synthesize(ctx, testRequest("hello"))
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) {
			t.Fatalf("expected ChainError, got %v", err)
		}
		if len(chainErr.Errors) != 2 {
			t.Errorf("expected 2 errors, got %d", len(chainErr.Errors))
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("rate limit is retryable", func(t *testing.T) {
		err := &tts.APIError{StatusCode: 429, Provider: "elevenlabs"}
		if !err.IsRateLimited() {
			t.Error("expected rate limited")
		}
		if !err.IsRetryable() {
			t.Error("expected retryable")
		}
	})

	t.Run("unauthorized is not retryable", func(t *testing.T) {
		err := &tts.APIError{StatusCode: 401, Provider: "elevenlabs"}
		if !err.IsUnauthorized() {
			t.Error("expected unauthorized")
		}
		if err.IsRetryable() {
			t.Error("401 must not be retried")
		}
	})

	t.Run("server errors are retryable", func(t *testing.T) {
		err := &tts.APIError{StatusCode: 503, Provider: "elevenlabs"}
		if !err.IsServerError() || !err.IsRetryable() {
			t.Error("expected retryable server error")
		}
	})
}

func TestProviderError(t *testing.T) {
	inner := errors.New("connection refused")
	err := tts.WrapError("elevenlabs", inner)

	if !errors.Is(err, inner) {
		t.Error("wrapped error lost its cause")
	}
	var provErr *tts.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatal("expected ProviderError")
	}
	if provErr.Provider != "elevenlabs" {
		t.Errorf("unexpected provider: %s", provErr.Provider)
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithAPIKey("sk-test"),
		tts.WithModel("eleven_flash_v2_5"),
		tts.WithTimeout(5*time.Second),
		tts.WithDelivery(0.7, 0.9),
	)

	if cfg.APIKey != "sk-test" {
		t.Errorf("unexpected API key: %s", cfg.APIKey)
	}
	if cfg.ModelID != "eleven_flash_v2_5" {
		t.Errorf("unexpected model: %s", cfg.ModelID)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.Timeout)
	}
	if cfg.Stability != 0.7 || cfg.Similarity != 0.9 {
		t.Errorf("unexpected delivery: %v/%v", cfg.Stability, cfg.Similarity)
	}

	t.Run("validate requires an API key", func(t *testing.T) {
		empty := tts.DefaultConfig()
		if err := empty.Validate(); !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}
