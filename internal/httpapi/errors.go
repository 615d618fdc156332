package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxhire/voxhire/internal/domain"
)

// errorBody is the stable error wire shape. 4xx responses carry the domain
// error's message; 5xx responses carry a generic one and the details go to
// the log only.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON encodes v with the given status code. Encoding failures after
// the header is out can only be logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response body", "error", err)
	}
}

// writeError maps a domain error onto the HTTP taxonomy:
//
//	NotFound                   404
//	IllegalState, Duplicate    409
//	Validation, UploadNotFound 400
//	ExternalService            502
//	BlobStore                  503
//	Timeout, anything else     500
//
// Ownership violations arrive as NotFound so foreign ids are
// indistinguishable from absent ones.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound     *domain.NotFoundError
		illegalState *domain.IllegalStateError
		duplicate    *domain.DuplicateError
		validation   *domain.ValidationError
		uploadGone   *domain.UploadNotFoundError
		external     *domain.ExternalServiceError
		blobStore    *domain.BlobStoreError
	)

	switch {
	case errors.As(err, &notFound):
		writeErrorBody(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &illegalState):
		writeErrorBody(w, http.StatusConflict, illegalState.Error())
	case errors.As(err, &duplicate):
		writeErrorBody(w, http.StatusConflict, duplicate.Error())
	case errors.As(err, &validation):
		writeErrorBody(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &uploadGone):
		writeErrorBody(w, http.StatusBadRequest, uploadGone.Error())
	case errors.As(err, &external):
		s.log.Error("request failed on external vendor",
			"method", r.Method, "path", r.URL.Path,
			"target", external.Target, "kind", string(external.Kind), "error", err)
		writeErrorBody(w, http.StatusBadGateway, "upstream service unavailable")
	case errors.As(err, &blobStore):
		s.log.Error("request failed on blob store",
			"method", r.Method, "path", r.URL.Path, "op", blobStore.Op, "error", err)
		writeErrorBody(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.log.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorBody(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Status: status})
}
