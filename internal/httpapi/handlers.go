package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/interview"
)

// maxJSONBody bounds JSON request bodies. Answer videos go through the
// presigned upload path or the multipart fallback, never through these.
const maxJSONBody = 1 << 20

// maxMultipartMemory is the in-memory budget for the multipart fallback;
// anything larger spools to a temp file.
const maxMultipartMemory = 32 << 20

// decodeJSON decodes the request body into v. Malformed bodies surface as a
// validation error so the client sees a 400, not a 500.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

type startRequest struct {
	ResumeID      int64  `json:"resumeId"`
	JobRoleID     int64  `json:"jobRoleId"`
	InterviewType string `json:"interviewType"`
}

// handleStart creates an interview and generates its questions.
//
//	POST /api/interviews/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ResumeID <= 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "resumeId", Reason: "must be a positive id"})
		return
	}
	if req.JobRoleID <= 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "jobRoleId", Reason: "must be a positive id"})
		return
	}

	dto, err := s.svc.Start(r.Context(), userID(r.Context()), req.ResumeID, req.JobRoleID, req.InterviewType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// handleGet returns the full interview DTO with per-question avatar URLs.
//
//	GET /api/interviews/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dto, err := s.svc.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// handleHistory lists the caller's interviews newest first, without
// questions.
//
//	GET /api/interviews/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.History(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleUploadURL issues a presigned PUT for one answer video.
//
//	POST /api/interviews/{id}/upload-url?questionId=…&contentType=…
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	questionID, err := strconv.ParseInt(r.URL.Query().Get("questionId"), 10, 64)
	if err != nil || questionID <= 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "questionId", Reason: "must be a positive integer"})
		return
	}

	ticket, err := s.svc.IssueUploadURL(r.Context(), userID(r.Context()), id, questionID,
		r.URL.Query().Get("contentType"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type confirmUploadRequest struct {
	QuestionID      int64    `json:"questionId"`
	S3Key           string   `json:"s3Key"`
	ContentType     string   `json:"contentType"`
	DurationSeconds *float64 `json:"duration"`
}

// handleConfirmUpload records that a presigned PUT landed and kicks off
// transcription.
//
//	POST /api/interviews/{id}/confirm-upload
func (s *Server) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req confirmUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.QuestionID <= 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "questionId", Reason: "must be a positive id"})
		return
	}
	if req.S3Key == "" {
		s.writeError(w, r, &domain.ValidationError{Field: "s3Key", Reason: "must not be empty"})
		return
	}

	err = s.svc.ConfirmUpload(r.Context(), userID(r.Context()), id, interview.ConfirmUploadRequest{
		QuestionID:      req.QuestionID,
		Key:             req.S3Key,
		ContentType:     req.ContentType,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitResponse is the deprecated multipart fallback: the video
// travels through this process instead of straight to the blob store. Form
// fields: "video" (file), "questionId", optional "duration" in seconds.
//
//	POST /api/interviews/{id}/response
func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, r, &domain.ValidationError{Field: "body", Reason: "malformed multipart form"})
		return
	}
	questionID, err := strconv.ParseInt(r.FormValue("questionId"), 10, 64)
	if err != nil || questionID <= 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "questionId", Reason: "must be a positive integer"})
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, r, &domain.ValidationError{Field: "video", Reason: "file part missing"})
		return
	}
	defer file.Close()

	var duration *float64
	if raw := r.FormValue("duration"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			s.writeError(w, r, &domain.ValidationError{Field: "duration", Reason: "must be a non-negative number"})
			return
		}
		duration = &d
	}

	err = s.svc.SubmitResponse(r.Context(), userID(r.Context()), id, questionID,
		file, header.Size, header.Header.Get("Content-Type"), duration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleComplete ends the answering phase and schedules feedback.
//
//	POST /api/interviews/{id}/complete
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Complete(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusProcessing)})
}

// handleFeedback returns the evaluation once it exists.
//
//	GET /api/interviews/{id}/feedback
//
// 200 with the DTO when COMPLETED, 202 while PROCESSING, 404 otherwise.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dto, err := s.svc.Feedback(r.Context(), userID(r.Context()), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto)
	case errors.Is(err, interview.ErrFeedbackPending):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(domain.StatusProcessing)})
	default:
		s.writeError(w, r, err)
	}
}
