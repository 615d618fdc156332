package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/pkg/provider/stt"
)

// scheduleTranscription hands the answer to the speech-to-text job. Failure
// to even enqueue is absorbed: the Response stays untranscribed and the
// feedback pipeline substitutes a placeholder for its text.
func (s *Service) scheduleTranscription(resp domain.Response) {
	ok := s.pool.Submit("stt.transcribe", func(ctx context.Context) {
		s.transcribe(ctx, resp)
	})
	if !ok {
		s.log.Error("transcription job rejected, response stays untranscribed",
			"interview_id", resp.InterviewID, "response_id", resp.ID)
	}
}

// transcribe runs one answer through the speech-to-text vendor: presign the
// stored video, submit, poll to a verdict, persist text and confidence.
// Every failure is terminal for this job and leaves the transcription null.
func (s *Service) transcribe(ctx context.Context, resp domain.Response) {
	log := s.log.With(
		"interview_id", resp.InterviewID,
		"response_id", resp.ID,
		"question_id", resp.QuestionID,
	)

	// The URL must stay valid across vendor-side queueing plus the poll
	// deadline; the GET TTL default covers that with a wide margin.
	audioURL, err := s.blobs.PresignGet(ctx, resp.VideoObjectKey, s.cfg.PresignGetTTL)
	if err != nil {
		log.Error("transcription presign failed", "key", resp.VideoObjectKey, "error", err)
		return
	}

	var jobID string
	err = s.sttExec.Do(ctx, func(ctx context.Context) error {
		var submitErr error
		jobID, submitErr = s.speech.Submit(ctx, audioURL, s.cfg.STTLanguageCode)
		return submitErr
	})
	if err != nil {
		log.Error("transcription submit failed", "error", err)
		return
	}

	tr, err := s.awaitTranscript(ctx, jobID)
	if err != nil {
		log.Error("transcription did not complete", "job_id", jobID, "error", err)
		return
	}

	if err := s.st.Responses.SetTranscription(ctx, resp.ID, tr.Text, tr.Confidence); err != nil {
		log.Error("transcription write failed", "job_id", jobID, "error", err)
		return
	}
	log.Info("response transcribed", "job_id", jobID, "confidence", tr.Confidence, "chars", len(tr.Text))
}

// awaitTranscript polls the transcription job until completed, error, or the
// poll deadline. Poll calls are deliberately not retried: still-processing
// is not a failure, and the loop's own deadline bounds the wait.
func (s *Service) awaitTranscript(ctx context.Context, jobID string) (stt.Transcript, error) {
	for attempt := 0; attempt < s.cfg.STTPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		case <-time.After(s.cfg.STTPollInterval):
		}

		tr, err := s.speech.Poll(ctx, jobID)
		if err != nil {
			return stt.Transcript{}, err
		}

		switch tr.Status {
		case stt.TranscriptCompleted:
			return tr, nil
		case stt.TranscriptError:
			return stt.Transcript{}, fmt.Errorf("transcription rejected: %s", tr.Error)
		}
	}
	return stt.Transcript{}, &domain.TimeoutError{Stage: "stt"}
}
