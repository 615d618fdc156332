package domain

// Status is the interview lifecycle state.
//
//	CREATED -> GENERATING_VIDEOS -> IN_PROGRESS -> PROCESSING -> COMPLETED
//	              |                    |              |
//	              +--------------------+--------------+-------> FAILED
//
// CREATED is transient: it exists only inside the START transaction and a
// persisted row always reaches GENERATING_VIDEOS before START returns.
type Status string

const (
	// StatusCreated is the in-transaction starting state.
	StatusCreated Status = "CREATED"

	// StatusGeneratingVideos means questions exist and the avatar pipeline
	// is running. Answer uploads are rejected.
	StatusGeneratingVideos Status = "GENERATING_VIDEOS"

	// StatusInProgress means the avatar pipeline terminated (every question
	// has either a key or a permanent null) and uploads are accepted.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusProcessing means the candidate completed and the feedback
	// pipeline is running.
	StatusProcessing Status = "PROCESSING"

	// StatusCompleted is terminal success: Feedback exists, score is set.
	StatusCompleted Status = "COMPLETED"

	// StatusFailed is terminal: set by the sweeper or an unrecoverable
	// pipeline failure.
	StatusFailed Status = "FAILED"
)

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusGeneratingVideos, StatusInProgress,
		StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s -> next is a legal transition.
// Transitions are the only way status changes; everything else must be
// rejected with an IllegalStateError at the service boundary.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusGeneratingVideos
	case StatusGeneratingVideos:
		return next == StatusInProgress || next == StatusFailed
	case StatusInProgress:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}
