package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError maps err to a status code and writes it as JSON. Server-side
// failures are logged at error level, failed batches at info and other
// client mistakes at debug.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "error", err)
	case errs.IsBatchFailure(err):
		s.logger.Info("batch rejected", "status", status, "error", errs.UserMessage(err))
	default:
		s.logger.Debug("request rejected", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: errs.UserMessage(err), Code: errs.GetCode(err)})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidPolicy,
		errs.ErrCodeInvalidIndex, errs.ErrCodeEmptyBatch:
		return http.StatusBadRequest
	case errs.ErrCodeRead, errs.ErrCodeDecode:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotFound, errs.ErrCodeNotMember, errs.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errs.ErrCodeDragInProgress, errs.ErrCodeNoActiveDrag, errs.ErrCodeStaleBatch,
		errs.ErrCodeEmptyComposite:
		return http.StatusConflict
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var coded *errs.Error
		if errors.As(err, &coded) {
			return coded
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}
