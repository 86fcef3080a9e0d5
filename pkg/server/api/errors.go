package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// ErrorResponse is the JSON body of every API error.
//
// Example:
//
//	{
//	  "error": "Conflict",
//	  "code": "JOB_ALREADY_RUNNING",
//	  "message": "a job is already running"
//	}
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidationError is a lightweight error used for 400 responses.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation failed"
	}
	if e.Reason == "" {
		return e.Field + ": invalid"
	}
	return e.Field + ": " + e.Reason
}

// WriteError writes err as a JSON error response. The status and code come
// from the job error mapping; validation errors become 400.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := jobs.HTTPStatus(err)
	code := jobs.ErrorCode(err)

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		statusCode = http.StatusBadRequest
		code = "INVALID_REQUEST"
	}

	logEvent := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		logEvent = log.Error()
	}
	logEvent.
		Str("component", "api").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Str("code", code).
		Err(err).
		Msg("Request failed")

	writeErrorBody(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: err.Error(),
	})
}

// WriteJSONError writes a custom JSON error response with a specific status code.
func WriteJSONError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeErrorBody(w, statusCode, ErrorResponse{Error: errorType, Message: message})
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode error response")
	}
}

// WriteJSON writes a JSON response to the client.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode JSON response")
	}
}
