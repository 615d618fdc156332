// Package avatar defines the Provider interface for talking-head video
// backends.
//
// Video generation is asynchronous on every known vendor: a job is created,
// then polled until it lands in a terminal state. The poll loop itself lives
// in the caller (with its own deadline); implementations only translate one
// create or one poll into a vendor round trip.
package avatar

import "context"

// TalkStatus is the lifecycle state of a submitted generation job.
type TalkStatus string

const (
	// TalkQueued means the vendor accepted the job but has not started it.
	TalkQueued TalkStatus = "queued"
	// TalkProcessing means the vendor is rendering the video.
	TalkProcessing TalkStatus = "processing"
	// TalkDone means the video is ready at ResultURL.
	TalkDone TalkStatus = "done"
	// TalkError means the vendor gave up on the job.
	TalkError TalkStatus = "error"
)

// TalkRequest describes one video generation job.
type TalkRequest struct {
	// AudioURL is a URL the vendor can fetch the narration audio from. It
	// must stay valid for the whole render (presigned GETs need a generous
	// TTL).
	AudioURL string

	// PortraitURL points at the presenter image.
	PortraitURL string

	// PadAudioSeconds appends silence after the narration so the avatar does
	// not cut off mid-gesture.
	PadAudioSeconds float64

	// Fluent smooths transitions between speech segments.
	Fluent bool
}

// Talk is a point-in-time snapshot of a generation job.
type Talk struct {
	// ID is the provider-assigned job identifier.
	ID string

	// Status is the current lifecycle state.
	Status TalkStatus

	// ResultURL is the downloadable video, set once Status is TalkDone.
	ResultURL string

	// Error carries the vendor's failure detail when Status is TalkError.
	Error string
}

// Provider is the abstraction over any talking-head video backend.
//
// Implementations must be safe for concurrent use and never retry internally;
// vendor rejections surface as *provider.StatusError and connection-level
// failures as *provider.TransportError.
type Provider interface {
	// CreateTalk submits a generation job and returns its provider-assigned
	// job ID.
	CreateTalk(ctx context.Context, req TalkRequest) (string, error)

	// PollTalk fetches the current state of a previously created job.
	// A non-terminal status is a normal result, not an error.
	PollTalk(ctx context.Context, id string) (Talk, error)
}
