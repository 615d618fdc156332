// Package interview implements the interview lifecycle: starting a session,
// answering its questions through the presigned upload handshake, completing
// it, and reading back the generated feedback.
//
// The service owns every status transition a user request can cause and
// schedules the asynchronous follow-up work (speech-to-text per answer, the
// feedback pipeline on completion) on the shared worker pool. Rendering the
// question avatars is not its job; that fan-out belongs to the avatargen
// pipeline, driven by the QuestionsCreated event this service publishes.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/events"
	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/internal/resilience"
	"github.com/voxhire/voxhire/internal/store"
	"github.com/voxhire/voxhire/internal/worker"
	"github.com/voxhire/voxhire/pkg/blob"
	"github.com/voxhire/voxhire/pkg/provider/feedbackgen"
	"github.com/voxhire/voxhire/pkg/provider/questiongen"
	"github.com/voxhire/voxhire/pkg/provider/stt"
)

// ErrFeedbackPending reports that the feedback pipeline is still running.
// The HTTP layer turns it into a 202 with a PROCESSING body.
var ErrFeedbackPending = errors.New("feedback not generated yet")

// DefaultContentType is assumed for answer uploads that do not name one.
const DefaultContentType = "video/webm"

// Config tunes the service. The zero value of every optional field selects
// the documented default.
type Config struct {
	// QuestionCount is how many questions Start requests from the
	// generator. Default: 10.
	QuestionCount int

	// PresignGetTTL bounds the avatar and transcription GET URLs minted on
	// the way out. Default: [blob.DefaultGetTTL].
	PresignGetTTL time.Duration

	// PresignPutTTL bounds the upload handshake PUT URLs.
	// Default: [blob.DefaultPutTTL].
	PresignPutTTL time.Duration

	// STTLanguageCode is passed to every transcription submit. Default: "en".
	STTLanguageCode string

	// STTPollInterval and STTPollAttempts bound the transcription poll
	// loop. Defaults: 3s and 60, a 180s deadline.
	STTPollInterval time.Duration
	STTPollAttempts int
}

func (c Config) withDefaults() Config {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 10
	}
	if c.PresignGetTTL <= 0 {
		c.PresignGetTTL = blob.DefaultGetTTL
	}
	if c.PresignPutTTL <= 0 {
		c.PresignPutTTL = blob.DefaultPutTTL
	}
	if c.STTLanguageCode == "" {
		c.STTLanguageCode = "en"
	}
	if c.STTPollInterval <= 0 {
		c.STTPollInterval = 3 * time.Second
	}
	if c.STTPollAttempts <= 0 {
		c.STTPollAttempts = 60
	}
	return c
}

// Service orchestrates the interview lifecycle.
// It is safe for concurrent use; one Service serves the whole process.
type Service struct {
	cfg Config
	log *slog.Logger

	st    store.Store
	blobs blob.Store

	qgen   questiongen.Provider
	speech stt.Provider
	fgen   feedbackgen.Provider

	qgenExec *resilience.Executor
	sttExec  *resilience.Executor
	fgenExec *resilience.Executor

	bus  *events.Bus
	pool *worker.Pool

	metrics *observe.Metrics
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics attaches the interview and cache instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. st must carry every store interface; the three
// executors are the resilience wrappers for question-gen, stt, and
// feedback-gen, tuned at the composition root. Asynchronous follow-up work
// (transcription, feedback) runs on pool, so its lifetime must cover the
// service's.
func New(
	st store.Store,
	blobs blob.Store,
	qgen questiongen.Provider,
	speech stt.Provider,
	fgen feedbackgen.Provider,
	qgenExec, sttExec, fgenExec *resilience.Executor,
	bus *events.Bus,
	pool *worker.Pool,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		log:      slog.Default().With("component", "interview"),
		st:       st,
		blobs:    blobs,
		qgen:     qgen,
		speech:   speech,
		fgen:     fgen,
		qgenExec: qgenExec,
		sttExec:  sttExec,
		fgenExec: fgenExec,
		bus:      bus,
		pool:     pool,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start creates an interview for the user's resume and the target role,
// generates its questions, and returns the full DTO in GENERATING_VIDEOS.
//
// The interview row, its questions, and the GENERATING_VIDEOS transition
// commit atomically; a generation failure leaves nothing behind. The
// QuestionsCreated event is staged during the transaction and dispatched
// only after commit, which hands the avatar fan-out to the worker pool.
func (s *Service) Start(ctx context.Context, userID, resumeID, jobRoleID int64, interviewType string) (*InterviewDTO, error) {
	log := s.log.With("user_id", userID, "resume_id", resumeID, "job_role_id", jobRoleID)

	resume, err := s.st.Resumes.GetForUser(ctx, resumeID, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.st.JobRoles.Get(ctx, jobRoleID)
	if err != nil {
		return nil, err
	}

	var (
		iv domain.Interview
		qs []*domain.Question
	)
	err = s.st.Tx.WithinTx(ctx, func(ctx context.Context) error {
		iv = domain.Interview{
			UserID:        userID,
			ResumeID:      resumeID,
			JobRoleID:     jobRoleID,
			Status:        domain.StatusCreated,
			InterviewType: strings.ToUpper(strings.TrimSpace(interviewType)),
		}
		if err := s.st.Interviews.Create(ctx, &iv); err != nil {
			return err
		}

		var generated []questiongen.Question
		err := s.qgenExec.Do(ctx, func(ctx context.Context) error {
			var genErr error
			generated, genErr = s.qgen.Generate(ctx, questiongen.Request{
				ResumeText:     resume.ExtractedText,
				JobTitle:       role.Title,
				JobDescription: role.Description,
				InterviewType:  iv.InterviewType,
				Count:          s.cfg.QuestionCount,
			})
			return genErr
		})
		if err != nil {
			return err
		}

		qs = make([]*domain.Question, len(generated))
		for i, g := range generated {
			qs[i] = &domain.Question{
				InterviewID: iv.ID,
				Ordinal:     i + 1,
				Text:        g.Text,
				Category:    domain.Category(g.Category),
				Difficulty:  domain.Difficulty(g.Difficulty),
			}
		}
		if err := s.st.Questions.CreateBatch(ctx, qs); err != nil {
			return err
		}

		err = s.st.Interviews.TransitionStatus(ctx, iv.ID,
			domain.StatusCreated, domain.StatusGeneratingVideos)
		if err != nil {
			return err
		}
		iv.Status = domain.StatusGeneratingVideos

		ids := make([]int64, len(qs))
		for i, q := range qs {
			ids[i] = q.ID
		}
		s.bus.Publish(ctx, events.QuestionsCreated{
			InterviewID: iv.ID,
			UserID:      userID,
			QuestionIDs: ids,
		})
		return nil
	})
	if err != nil {
		log.Error("interview start failed", "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.InterviewsStarted.Add(ctx, 1)
	}
	log.Info("interview started", "interview_id", iv.ID, "questions", len(qs))

	dto := s.interviewDTO(ctx, iv, derefQuestions(qs), nil)
	return dto, nil
}

// Get returns the interview DTO with per-question progress: category,
// difficulty, whether an answer exists, and a fresh presigned GET URL for
// every avatar key already set. URLs are minted here and never stored.
func (s *Service) Get(ctx context.Context, userID, interviewID int64) (*InterviewDTO, error) {
	iv, err := s.st.Interviews.GetForUser(ctx, interviewID, userID)
	if err != nil {
		return nil, err
	}
	qs, err := s.st.Questions.ListByInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	rs, err := s.st.Responses.ListByInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	answered := make(map[int64]bool, len(rs))
	for _, r := range rs {
		answered[r.QuestionID] = true
	}
	return s.interviewDTO(ctx, iv, qs, answered), nil
}

// History returns the user's interviews newest first, without questions.
func (s *Service) History(ctx context.Context, userID int64) ([]InterviewSummaryDTO, error) {
	ivs, err := s.st.Interviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]InterviewSummaryDTO, len(ivs))
	for i, iv := range ivs {
		out[i] = summaryDTO(iv)
	}
	return out, nil
}

// IssueUploadURL validates that the question is answerable and returns a
// presigned PUT ticket for the deterministic response key. The Response row
// itself is created later by ConfirmUpload, once the PUT has landed.
func (s *Service) IssueUploadURL(ctx context.Context, userID, interviewID, questionID int64, contentType string) (*UploadTicketDTO, error) {
	if err := s.validateAnswerable(ctx, userID, interviewID, questionID); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	key := blob.ResponseKey(userID, interviewID, questionID)
	url, err := s.blobs.PresignPut(ctx, key, contentType, s.cfg.PresignPutTTL)
	if err != nil {
		return nil, &domain.BlobStoreError{Op: "presign put", Err: err}
	}

	s.log.Info("upload url issued",
		"interview_id", interviewID, "question_id", questionID, "key", key)
	return &UploadTicketDTO{
		UploadURL:        url,
		Key:              key,
		ExpiresInSeconds: int64(s.cfg.PresignPutTTL / time.Second),
	}, nil
}

// ConfirmUploadRequest carries the client's claim that a presigned PUT
// landed.
type ConfirmUploadRequest struct {
	QuestionID      int64
	Key             string
	ContentType     string
	DurationSeconds *float64
}

// ConfirmUpload revalidates the answer, verifies the object actually exists,
// records the Response, and fires the asynchronous transcription. A
// transcription that cannot be started is logged and retried out of band;
// the confirmation itself still succeeds.
func (s *Service) ConfirmUpload(ctx context.Context, userID, interviewID int64, req ConfirmUploadRequest) error {
	if err := s.validateAnswerable(ctx, userID, interviewID, req.QuestionID); err != nil {
		return err
	}
	if err := validateResponseKey(req.Key, userID, interviewID, req.QuestionID); err != nil {
		return err
	}

	exists, err := s.blobs.Head(ctx, req.Key)
	if err != nil {
		return &domain.BlobStoreError{Op: "head", Err: err}
	}
	if !exists {
		return &domain.UploadNotFoundError{Key: req.Key}
	}

	return s.recordResponse(ctx, domain.Response{
		QuestionID:      req.QuestionID,
		InterviewID:     interviewID,
		UserID:          userID,
		VideoObjectKey:  req.Key,
		DurationSeconds: req.DurationSeconds,
	})
}

// SubmitResponse is the deprecated server-side upload fallback: the answer
// video is streamed through this process into the response key, then the
// confirmation path runs without the HEAD (we just wrote the object).
// New clients should use IssueUploadURL + ConfirmUpload instead.
func (s *Service) SubmitResponse(ctx context.Context, userID, interviewID, questionID int64, video io.Reader, size int64, contentType string, durationSeconds *float64) error {
	if err := s.validateAnswerable(ctx, userID, interviewID, questionID); err != nil {
		return err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	key := blob.ResponseKey(userID, interviewID, questionID)
	if err := s.blobs.PutObjectStream(ctx, key, video, size, contentType); err != nil {
		return &domain.BlobStoreError{Op: "put", Err: err}
	}

	return s.recordResponse(ctx, domain.Response{
		QuestionID:      questionID,
		InterviewID:     interviewID,
		UserID:          userID,
		VideoObjectKey:  key,
		DurationSeconds: durationSeconds,
	})
}

// Complete moves the interview IN_PROGRESS → PROCESSING (stamping
// completed_at) and schedules the feedback pipeline. A second call loses the
// compare-and-set and returns IllegalState.
func (s *Service) Complete(ctx context.Context, userID, interviewID int64) error {
	if _, err := s.st.Interviews.GetForUser(ctx, interviewID, userID); err != nil {
		return err
	}
	err := s.st.Interviews.TransitionStatus(ctx, interviewID,
		domain.StatusInProgress, domain.StatusProcessing)
	if err != nil {
		return err
	}

	s.log.Info("interview completed by candidate, feedback scheduled",
		"interview_id", interviewID, "user_id", userID)
	s.scheduleFeedback(interviewID)
	return nil
}

// Feedback returns the generated evaluation. While the feedback pipeline is
// still running it returns ErrFeedbackPending; any other state reads as not
// found, including FAILED interviews the sweeper gave up on.
func (s *Service) Feedback(ctx context.Context, userID, interviewID int64) (*FeedbackDTO, error) {
	iv, err := s.st.Interviews.GetForUser(ctx, interviewID, userID)
	if err != nil {
		return nil, err
	}

	switch iv.Status {
	case domain.StatusCompleted:
		fb, err := s.st.Feedbacks.GetByInterview(ctx, interviewID)
		if err != nil {
			return nil, err
		}
		dto := feedbackDTO(fb)
		return &dto, nil
	case domain.StatusProcessing:
		return nil, ErrFeedbackPending
	default:
		return nil, &domain.NotFoundError{Entity: "feedback"}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared validation
// ─────────────────────────────────────────────────────────────────────────────

// validateAnswerable runs the upload handshake's common checks: the user
// owns the interview, it is IN_PROGRESS, the question belongs to it, and no
// Response exists yet.
func (s *Service) validateAnswerable(ctx context.Context, userID, interviewID, questionID int64) error {
	iv, err := s.st.Interviews.GetForUser(ctx, interviewID, userID)
	if err != nil {
		return err
	}
	if iv.Status != domain.StatusInProgress {
		return &domain.IllegalStateError{From: iv.Status, To: domain.StatusInProgress}
	}

	q, err := s.st.Questions.Get(ctx, questionID)
	if err != nil {
		return err
	}
	if q.InterviewID != interviewID {
		return &domain.NotFoundError{Entity: "question"}
	}

	_, err = s.st.Responses.GetByQuestion(ctx, questionID)
	if err == nil {
		return &domain.DuplicateError{Entity: "response"}
	}
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		return err
	}
	return nil
}

// validateResponseKey pins a confirmed key to the layout IssueUploadURL
// hands out, so a client cannot attach someone else's object to its answer.
func validateResponseKey(key string, userID, interviewID, questionID int64) error {
	prefix := fmt.Sprintf("interviews/%d/%d/response_%d_", userID, interviewID, questionID)
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ".webm") {
		return &domain.ValidationError{Field: "s3Key", Reason: "does not match the issued upload key"}
	}
	return nil
}

// recordResponse persists the answer and fires its transcription. Response
// creation happens-before the STT submit; the job only ever sees a committed
// row.
func (s *Service) recordResponse(ctx context.Context, resp domain.Response) error {
	if err := s.st.Responses.Create(ctx, &resp); err != nil {
		return err
	}

	s.log.Info("response recorded",
		"interview_id", resp.InterviewID, "question_id", resp.QuestionID, "key", resp.VideoObjectKey)
	s.scheduleTranscription(resp)
	return nil
}

func derefQuestions(qs []*domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = *q
	}
	return out
}
