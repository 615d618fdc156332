// Package questiongen defines the Provider interface for interview question
// generation backends.
//
// A question generator turns a candidate's resume and a target role into a
// fixed-size set of interview questions. Model output is untrusted: adapters
// parse defensively, drop malformed items, and fail only when nothing usable
// remains.
package questiongen

import "context"

// Question categories. Items with any other category are discarded during
// parsing.
const (
	CategoryTechnical   = "TECHNICAL"
	CategoryBehavioral  = "BEHAVIORAL"
	CategorySituational = "SITUATIONAL"
)

// Question difficulties. Items with any other difficulty are discarded
// during parsing.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// ValidCategory reports whether s is a recognized question category.
// Callers are expected to uppercase s first.
func ValidCategory(s string) bool {
	switch s {
	case CategoryTechnical, CategoryBehavioral, CategorySituational:
		return true
	}
	return false
}

// ValidDifficulty reports whether s is a recognized question difficulty.
// Callers are expected to uppercase s first.
func ValidDifficulty(s string) bool {
	switch s {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Request describes the interview to generate questions for.
type Request struct {
	// ResumeText is the extracted plain text of the candidate's resume.
	ResumeText string

	// JobTitle is the target role title.
	JobTitle string

	// JobDescription optionally elaborates on the role.
	JobDescription string

	// InterviewType optionally biases the question mix (e.g., "TECHNICAL").
	InterviewType string

	// Count is how many questions to produce. Zero means the provider
	// default of 10.
	Count int
}

// Question is one generated interview question.
type Question struct {
	// Text is the question itself.
	Text string

	// Category is one of the Category* constants.
	Category string

	// Difficulty is one of the Difficulty* constants.
	Difficulty string
}

// Provider is the abstraction over any question generation backend.
//
// Implementations must be safe for concurrent use and never retry internally;
// vendor rejections surface as *provider.StatusError and connection-level
// failures as *provider.TransportError.
type Provider interface {
	// Generate produces interview questions for the given request. It
	// returns an error when the backend fails or when not a single valid
	// question could be parsed from its output.
	Generate(ctx context.Context, req Request) ([]Question, error)
}
