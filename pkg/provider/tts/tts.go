// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// renders one complete question narration per call. Interview questions are
// synthesized once and stored, so the interface is batch-shaped: full text in,
// full MP3 payload out. Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile pins the synthesis parameters for one narration. Every field
// participates in the audio cache fingerprint: two profiles differing in any
// field produce distinct cache entries.
type VoiceProfile struct {
	// VoiceID is the provider-specific voice identifier.
	VoiceID string

	// ModelID selects the synthesis model (e.g., "eleven_multilingual_v2").
	ModelID string

	// Stability tunes delivery consistency, in [0, 1].
	Stability float64

	// SimilarityBoost tunes adherence to the reference voice, in [0, 1].
	SimilarityBoost float64
}

// Provider is the abstraction over any batch TTS backend.
//
// Implementations must be safe for concurrent use. Multiple synthesis requests
// may run in parallel (one per question during avatar fan-out).
type Provider interface {
	// Synthesize renders text with the given voice and returns the complete
	// MP3 payload.
	//
	// Vendor rejections surface as *provider.StatusError and connection-level
	// failures as *provider.TransportError so the caller's resilience layer
	// can classify them. Implementations never retry internally.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
}
