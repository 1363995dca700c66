// Package tts converts finalized utterances into audio.
//
// The package is provider-agnostic: callers depend only on the Provider
// interface and hand it a Request carrying the resolved voice identifier and
// prosody. Buffered synthesis returns a complete audio buffer; streaming
// synthesis returns a StreamHandle that emits chunks as they arrive and
// supports cooperative cancellation for barge-in and call teardown.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	defer provider.Close()
//
//	settings := voice.ResolveSettings(voice.ResolveProfile("harper"), nil)
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "Hello", Voice: settings})
package tts

import (
	"context"
	"time"

	"github.com/voxline/go-voxline/pkg/voice"
)

// Request is one synthesis job: the finalized text plus the resolved voice
// settings for the active call.
type Request struct {
	// Text is the finalized utterance. Must be non-empty.
	Text string

	// Voice carries the provider voice ID and prosody resolved from the
	// caller's voice profile and tone preset.
	Voice voice.Settings
}

// Provider defines the speech synthesis interface.
// All implementations must satisfy this interface so backends can be
// swapped without changing callers.
type Provider interface {
	// Synthesize converts text to audio in a single round trip, returning
	// the complete audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Stream converts text to audio with streaming output for lowest
	// latency. The returned handle is cancellable; see StreamHandle.
	Stream(ctx context.Context, req Request) (*StreamHandle, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete buffered synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., pcm_24000, ulaw_8000).
	Encoding Encoding

	// SampleRate in Hz (e.g., 8000, 24000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// PCM formats (raw audio, lowest latency)
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM22 Encoding = "pcm_22050" // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
	EncodingPCM44 Encoding = "pcm_44100" // 44.1kHz mono PCM16

	// Compressed formats
	EncodingMP3  Encoding = "mp3_44100_128" // MP3 128kbps
	EncodingULaw Encoding = "ulaw_8000"     // μ-law 8kHz (telephony)
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingPCM44, EncodingMP3:
		return 44100
	case EncodingULaw:
		return 8000
	default:
		return 24000
	}
}

// estimatePCMDuration estimates playback duration for PCM16 audio.
func estimatePCMDuration(byteCount, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := byteCount / 2
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}
