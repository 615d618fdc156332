package interview

import (
	"context"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
)

// InterviewDTO is the full wire representation of one interview. Avatar
// URLs are presigned at assembly time; the database only ever holds keys.
type InterviewDTO struct {
	ID            int64         `json:"id"`
	Status        string        `json:"status"`
	InterviewType string        `json:"interviewType,omitempty"`
	ResumeID      int64         `json:"resumeId"`
	JobRoleID     int64         `json:"jobRoleId"`
	OverallScore  *int          `json:"overallScore,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	Questions     []QuestionDTO `json:"questions"`
}

// QuestionDTO is one question inside the interview DTO. HasAvatar mirrors
// the stored key so pollers can tell "render pending" from "presign failed";
// Answered flips when the question's Response exists.
type QuestionDTO struct {
	ID             int64  `json:"id"`
	Ordinal        int    `json:"ordinal"`
	Text           string `json:"text"`
	Category       string `json:"category"`
	Difficulty     string `json:"difficulty"`
	HasAvatar      bool   `json:"hasAvatar"`
	AvatarVideoURL string `json:"avatarVideoUrl,omitempty"`
	Answered       bool   `json:"answered"`
}

// InterviewSummaryDTO is the question-free row History returns.
type InterviewSummaryDTO struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	InterviewType string     `json:"interviewType,omitempty"`
	JobRoleID     int64      `json:"jobRoleId"`
	OverallScore  *int       `json:"overallScore,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// UploadTicketDTO is the presigned-PUT handshake answer. The client must PUT
// to UploadURL and confirm with exactly Key.
type UploadTicketDTO struct {
	UploadURL        string `json:"uploadUrl"`
	Key              string `json:"s3Key"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// FeedbackDTO is the wire representation of the generated evaluation.
type FeedbackDTO struct {
	InterviewID      int64     `json:"interviewId"`
	OverallScore     int       `json:"overallScore"`
	Strengths        []string  `json:"strengths"`
	Weaknesses       []string  `json:"weaknesses"`
	Recommendations  []string  `json:"recommendations"`
	DetailedAnalysis string    `json:"detailedAnalysis"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// interviewDTO assembles the full DTO. answered may be nil for a freshly
// started interview. A presign failure costs only that question's URL; the
// key's existence still shows through HasAvatar.
func (s *Service) interviewDTO(ctx context.Context, iv domain.Interview, qs []domain.Question, answered map[int64]bool) *InterviewDTO {
	dto := &InterviewDTO{
		ID:            iv.ID,
		Status:        string(iv.Status),
		InterviewType: iv.InterviewType,
		ResumeID:      iv.ResumeID,
		JobRoleID:     iv.JobRoleID,
		OverallScore:  iv.OverallScore,
		CreatedAt:     iv.CreatedAt,
		CompletedAt:   iv.CompletedAt,
		Questions:     make([]QuestionDTO, len(qs)),
	}
	for i, q := range qs {
		qd := QuestionDTO{
			ID:         q.ID,
			Ordinal:    q.Ordinal,
			Text:       q.Text,
			Category:   string(q.Category),
			Difficulty: string(q.Difficulty),
			Answered:   answered[q.ID],
		}
		if q.AvatarObjectKey != nil {
			qd.HasAvatar = true
			url, err := s.blobs.PresignGet(ctx, *q.AvatarObjectKey, s.cfg.PresignGetTTL)
			if err != nil {
				s.log.Warn("avatar presign failed, question served without url",
					"question_id", q.ID, "key", *q.AvatarObjectKey, "error", err)
			} else {
				qd.AvatarVideoURL = url
			}
		}
		dto.Questions[i] = qd
	}
	return dto
}

func summaryDTO(iv domain.Interview) InterviewSummaryDTO {
	return InterviewSummaryDTO{
		ID:            iv.ID,
		Status:        string(iv.Status),
		InterviewType: iv.InterviewType,
		JobRoleID:     iv.JobRoleID,
		OverallScore:  iv.OverallScore,
		CreatedAt:     iv.CreatedAt,
		CompletedAt:   iv.CompletedAt,
	}
}

func feedbackDTO(fb domain.Feedback) FeedbackDTO {
	dto := FeedbackDTO{
		InterviewID:      fb.InterviewID,
		OverallScore:     fb.OverallScore,
		Strengths:        fb.Strengths,
		Weaknesses:       fb.Weaknesses,
		Recommendations:  fb.Recommendations,
		DetailedAnalysis: fb.DetailedAnalysis,
		GeneratedAt:      fb.GeneratedAt,
	}
	if dto.Strengths == nil {
		dto.Strengths = []string{}
	}
	if dto.Weaknesses == nil {
		dto.Weaknesses = []string{}
	}
	if dto.Recommendations == nil {
		dto.Recommendations = []string{}
	}
	return dto
}
