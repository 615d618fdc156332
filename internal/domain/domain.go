// Package domain defines the interview aggregate: the entities persisted by
// the orchestration core, the interview status state machine, and the error
// taxonomy every service boundary maps to.
//
// Entities are plain structs with id relations, no object graphs. Every field
// that refers to stored media holds a blob-store object key, never a presigned
// URL; URLs are minted on demand when a DTO leaves the process.
package domain

import "time"

// Interview is the aggregate root of one candidate's simulated session.
type Interview struct {
	ID        int64
	UserID    int64
	ResumeID  int64
	JobRoleID int64

	// Status is never empty; it changes only through the transitions
	// enumerated in CanTransitionTo.
	Status Status

	// InterviewType tags the session flavour (e.g. "TECHNICAL_SCREEN").
	InterviewType string

	// OverallScore is set only once Status is StatusCompleted.
	OverallScore *int

	CreatedAt time.Time

	// CompletedAt is set when the interview leaves StatusInProgress.
	CompletedAt *time.Time
}

// Question is one generated interview question.
type Question struct {
	ID          int64
	InterviewID int64

	// Ordinal is 1-based and unique within the interview.
	Ordinal int

	Text       string
	Category   Category
	Difficulty Difficulty

	// AvatarObjectKey is the blob-store key of the rendered avatar video.
	// It transitions nil -> set at most once per question.
	AvatarObjectKey *string

	CreatedAt time.Time
}

// Response is the candidate's recorded answer to one question.
// At most one Response exists per Question.
type Response struct {
	ID          int64
	QuestionID  int64
	InterviewID int64
	UserID      int64

	// VideoObjectKey is never empty once the row exists.
	VideoObjectKey string

	// Transcription is monotonic: once non-nil it is never cleared.
	Transcription           *string
	TranscriptionConfidence *float64

	DurationSeconds *float64
	CreatedAt       time.Time
}

// Feedback is the aggregate evaluation of a completed interview.
// Exactly one Feedback exists per interview in StatusCompleted.
type Feedback struct {
	ID          int64
	InterviewID int64
	UserID      int64

	OverallScore     int
	Strengths        []string
	Weaknesses       []string
	Recommendations  []string
	DetailedAnalysis string

	GeneratedAt time.Time
}

// TTSCacheEntry maps a content fingerprint to the blob-store key of the
// synthesized MP3. Presence of a row implies the blob exists.
type TTSCacheEntry struct {
	CacheKey  string
	ObjectKey string
	CreatedAt time.Time
}

// AvatarCacheEntry maps a content fingerprint to the blob-store key of the
// rendered MP4. ExpiresAt is advisory; the core neither garbage-collects nor
// refuses expired rows.
type AvatarCacheEntry struct {
	CacheKey  string
	ObjectKey string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Resume is an external collaborator: the core reads the extracted text and
// validates ownership but never mutates it.
type Resume struct {
	ID            int64
	UserID        int64
	ObjectKey     string
	ExtractedText string
	CreatedAt     time.Time
}

// JobRole is an external collaborator read by id.
type JobRole struct {
	ID          int64
	Title       string
	Description string
}

// Category classifies a question.
type Category string

const (
	CategoryTechnical   Category = "TECHNICAL"
	CategoryBehavioral  Category = "BEHAVIORAL"
	CategorySituational Category = "SITUATIONAL"
)

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTechnical, CategoryBehavioral, CategorySituational:
		return true
	}
	return false
}

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// IsValid reports whether d is a recognised difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// External vendor targets, used by the resilience layer and error taxonomy.
const (
	TargetQuestionGen = "question-gen"
	TargetTTS         = "tts"
	TargetAvatar      = "avatar"
	TargetSTT         = "stt"
	TargetFeedbackGen = "feedback-gen"
)

// ClampScore forces a vendor-reported score into the valid [0, 100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
