package interview

import (
	"context"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/pkg/provider/feedbackgen"
)

// missingTranscript stands in for an answer whose speech-to-text never
// landed, so the evaluator still sees that the question was attempted.
const missingTranscript = "(no transcription available)"

// scheduleFeedback hands the completed interview to the feedback job. A
// rejected enqueue is absorbed: the interview stays in PROCESSING and the
// sweeper eventually fails it.
func (s *Service) scheduleFeedback(interviewID int64) {
	ok := s.pool.Submit("feedback.generate", func(ctx context.Context) {
		s.generateFeedback(ctx, interviewID)
	})
	if !ok {
		s.log.Error("feedback job rejected, interview stays in PROCESSING",
			"interview_id", interviewID)
	}
}

// generateFeedback evaluates a completed interview: pair every answered
// question with its transcript, score the set, and commit feedback, overall
// score, and the PROCESSING → COMPLETED transition atomically.
//
// Terminal failure persists nothing. The interview stays in PROCESSING until
// the sweeper moves it to FAILED, which is also why the final transition may
// legitimately lose its compare-and-set here.
func (s *Service) generateFeedback(ctx context.Context, interviewID int64) {
	log := s.log.With("interview_id", interviewID)

	iv, err := s.st.Interviews.Get(ctx, interviewID)
	if err != nil {
		log.Error("interview lookup failed, feedback run aborted", "error", err)
		return
	}
	if iv.Status != domain.StatusProcessing {
		log.Warn("interview not awaiting feedback, run skipped", "status", string(iv.Status))
		return
	}

	role, err := s.st.JobRoles.Get(ctx, iv.JobRoleID)
	if err != nil {
		log.Error("job role lookup failed, feedback run aborted", "error", err)
		return
	}

	pairs, err := s.answerPairs(ctx, interviewID)
	if err != nil {
		log.Error("answer collection failed, feedback run aborted", "error", err)
		return
	}

	var assessment feedbackgen.Assessment
	err = s.fgenExec.Do(ctx, func(ctx context.Context) error {
		var evalErr error
		assessment, evalErr = s.fgen.Evaluate(ctx, feedbackgen.Request{
			JobTitle:      role.Title,
			InterviewType: iv.InterviewType,
			Pairs:         pairs,
		})
		return evalErr
	})
	if err != nil {
		log.Error("feedback generation failed, interview stays in PROCESSING", "error", err)
		return
	}

	score := domain.ClampScore(assessment.OverallScore)
	fb := domain.Feedback{
		InterviewID:      interviewID,
		UserID:           iv.UserID,
		OverallScore:     score,
		Strengths:        emptyIfNil(assessment.Strengths),
		Weaknesses:       emptyIfNil(assessment.Weaknesses),
		Recommendations:  emptyIfNil(assessment.Recommendations),
		DetailedAnalysis: assessment.DetailedAnalysis,
	}

	err = s.st.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.st.Feedbacks.Create(ctx, &fb); err != nil {
			return err
		}
		if err := s.st.Interviews.SetOverallScore(ctx, interviewID, score); err != nil {
			return err
		}
		return s.st.Interviews.TransitionStatus(ctx, interviewID,
			domain.StatusProcessing, domain.StatusCompleted)
	})
	if err != nil {
		log.Error("feedback persistence failed, interview stays in PROCESSING", "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordInterviewFinished(ctx, string(domain.StatusCompleted))
	}
	log.Info("feedback generated, interview completed",
		"score", score, "answers", len(pairs))
}

// answerPairs builds the evaluator input: one (question, transcript) pair
// per recorded Response, in question order. Unanswered questions do not
// appear; untranscribed answers carry the placeholder.
func (s *Service) answerPairs(ctx context.Context, interviewID int64) ([]feedbackgen.QAPair, error) {
	qs, err := s.st.Questions.ListByInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	rs, err := s.st.Responses.ListByInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	texts := make(map[int64]string, len(qs))
	for _, q := range qs {
		texts[q.ID] = q.Text
	}

	pairs := make([]feedbackgen.QAPair, 0, len(rs))
	for _, r := range rs {
		answer := missingTranscript
		if r.Transcription != nil && *r.Transcription != "" {
			answer = *r.Transcription
		}
		pairs = append(pairs, feedbackgen.QAPair{
			QuestionText: texts[r.QuestionID],
			AnswerText:   answer,
		})
	}
	return pairs, nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
