// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Logger is the slice of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler renders errors as JSON responses.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Response is the JSON body written for a failed request.
type Response struct {
	Error     string                 `json:"error"`
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message,omitempty"`
	Retryable bool                   `json:"retryable"`
	Category  string                 `json:"category"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Handle logs err and writes it to w.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := AsStandardError(err)
	status := HTTPStatus(stdErr.Code)

	if h.logger != nil {
		h.logger.Error("request failed", map[string]interface{}{
			"path":          r.URL.Path,
			"status":        status,
			"errorCode":     string(stdErr.Code),
			"details":       stdErr.Details,
			"retryable":     stdErr.Retryable,
			"errorCategory": GetErrorCategory(stdErr.Code),
		})
	}

	writeStatus(w, status, stdErr)
}

// WriteJSON renders err with the status HTTPStatus assigns to its code.
func WriteJSON(w http.ResponseWriter, err error) {
	stdErr := AsStandardError(err)
	writeStatus(w, HTTPStatus(stdErr.Code), stdErr)
}

// WriteJSONStatus renders err with an explicit status.
func WriteJSONStatus(w http.ResponseWriter, status int, err error) {
	writeStatus(w, status, AsStandardError(err))
}

func writeStatus(w http.ResponseWriter, status int, stdErr *StandardError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error:     stdErr.Message,
		Code:      stdErr.Code,
		Message:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Category:  GetErrorCategory(stdErr.Code),
		Metadata:  stdErr.Metadata,
	})
}
