// Package feedbackgen defines the Provider interface for interview feedback
// generation backends.
//
// A feedback generator scores a finished interview from its question/answer
// transcript. Model output is untrusted: adapters parse defensively, clamp
// the score into range, and default missing lists to empty.
package feedbackgen

import "context"

// QAPair is one question and the candidate's transcribed answer.
type QAPair struct {
	// QuestionText is the question as asked.
	QuestionText string

	// AnswerText is the transcription of the candidate's answer. Callers
	// substitute a placeholder when transcription is unavailable.
	AnswerText string
}

// Request describes the interview to evaluate.
type Request struct {
	// JobTitle is the role the candidate interviewed for.
	JobTitle string

	// InterviewType optionally names the interview focus.
	InterviewType string

	// Pairs is the ordered question/answer transcript.
	Pairs []QAPair
}

// Assessment is the structured evaluation of an interview.
type Assessment struct {
	// OverallScore is in [0, 100].
	OverallScore int

	// Strengths lists what the candidate did well. Never nil.
	Strengths []string

	// Weaknesses lists where the candidate fell short. Never nil.
	Weaknesses []string

	// Recommendations lists concrete improvement advice. Never nil.
	Recommendations []string

	// DetailedAnalysis is the free-form narrative evaluation.
	DetailedAnalysis string
}

// Provider is the abstraction over any feedback generation backend.
//
// Implementations must be safe for concurrent use and never retry internally;
// vendor rejections surface as *provider.StatusError and connection-level
// failures as *provider.TransportError.
type Provider interface {
	// Evaluate scores the transcript and returns the structured assessment.
	Evaluate(ctx context.Context, req Request) (Assessment, error)
}
