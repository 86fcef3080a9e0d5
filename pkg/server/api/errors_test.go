package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteError_JobErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"busy", jobs.ErrAlreadyRunning, http.StatusConflict, "JOB_ALREADY_RUNNING"},
		{"idle", jobs.ErrNoActiveJob, http.StatusConflict, "JOB_NOT_RUNNING"},
		{"unknown kind", jobs.ErrUnknownKind, http.StatusNotFound, "JOB_UNKNOWN_KIND"},
		{"spawn", &jobs.SpawnError{Kind: jobs.KindScan, Err: errors.New("no such file")}, http.StatusInternalServerError, "JOB_SPAWN_FAILED"},
		{"generic", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/scan", nil)
			w := httptest.NewRecorder()

			WriteError(w, req, tt.err)

			require.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			require.Equal(t, http.StatusText(tt.status), response.Error)
			require.Equal(t, tt.code, response.Code)
			require.Equal(t, tt.err.Error(), response.Message)
		})
	}
}

func TestWriteError_Validation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x", nil)
	w := httptest.NewRecorder()

	WriteError(w, req, &ValidationError{Field: "kind", Reason: "must be one of: scan update modify"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeError(t, w)
	require.Equal(t, "INVALID_REQUEST", response.Code)
	require.Equal(t, "kind: must be one of: scan update modify", response.Message)
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	response := decodeError(t, w)
	require.Equal(t, "Unauthorized", response.Error)
	require.Equal(t, "Invalid token", response.Message)
	require.Empty(t, response.Code)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusAccepted, JobResponse{Running: true, Job: &jobs.Status{ID: "j1", Kind: jobs.KindScan}})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response JobResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.True(t, response.Running)
	require.Equal(t, "j1", response.Job.ID)
}

func TestValidationError_Message(t *testing.T) {
	var nilErr *ValidationError
	require.Equal(t, "", nilErr.Error())
	require.Equal(t, "validation failed", (&ValidationError{}).Error())
	require.Equal(t, "kind: invalid", (&ValidationError{Field: "kind"}).Error())
}
