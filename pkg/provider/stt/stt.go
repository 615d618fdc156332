// Package stt defines the Provider interface for speech-to-text backends.
//
// Transcription of answer videos is asynchronous: the audio is submitted by
// URL, then the job is polled until it reaches a terminal state. The poll
// loop lives in the caller (with its own deadline); implementations only
// translate one submit or one poll into a vendor round trip.
package stt

import "context"

// TranscriptStatus is the lifecycle state of a submitted transcription job.
type TranscriptStatus string

const (
	// TranscriptQueued means the vendor accepted the job but has not started.
	TranscriptQueued TranscriptStatus = "queued"
	// TranscriptProcessing means the vendor is transcribing.
	TranscriptProcessing TranscriptStatus = "processing"
	// TranscriptCompleted means Text and Confidence are populated.
	TranscriptCompleted TranscriptStatus = "completed"
	// TranscriptError means the vendor gave up on the job.
	TranscriptError TranscriptStatus = "error"
)

// Transcript is a point-in-time snapshot of a transcription job.
type Transcript struct {
	// ID is the provider-assigned job identifier.
	ID string

	// Status is the current lifecycle state.
	Status TranscriptStatus

	// Text is the transcription, set once Status is TranscriptCompleted.
	Text string

	// Confidence is the vendor's overall confidence in [0, 1], set once
	// Status is TranscriptCompleted.
	Confidence float64

	// Error carries the vendor's failure detail when Status is TranscriptError.
	Error string
}

// Provider is the abstraction over any asynchronous STT backend.
//
// Implementations must be safe for concurrent use and never retry internally;
// vendor rejections surface as *provider.StatusError and connection-level
// failures as *provider.TransportError.
type Provider interface {
	// Submit starts transcription of the audio reachable at audioURL and
	// returns the provider-assigned job ID. languageCode is an ISO 639-1
	// code such as "en".
	Submit(ctx context.Context, audioURL, languageCode string) (string, error)

	// Poll fetches the current state of a previously submitted job.
	// A non-terminal status is a normal result, not an error.
	Poll(ctx context.Context, id string) (Transcript, error)
}
