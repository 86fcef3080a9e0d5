package v1

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
)

// GetJobHandler handles GET /api/v1/job
//
// Returns the running job, or 404 when the slot is empty.
//
// Response format:
//
//	{
//	  "running": true,
//	  "job": {"id": "9f1c...", "kind": "scan", "pid": 4242, "progress": 37.5},
//	  "sessions": 2
//	}
func GetJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := deps.Jobs.Status()
		if !ok {
			api.WriteJSONError(w, http.StatusNotFound, "Not Found", "no job is running")
			return
		}
		api.WriteJSON(w, http.StatusOK, api.JobResponse{
			Running:  true,
			Job:      &st,
			Sessions: sessionCount(deps),
		})
	}
}

// StartJobHandler handles POST /api/v1/jobs/{kind}
//
// Starts a scan, update or modify job. Responds 202 with the new job,
// 409 when a job is already running, 400 for an unknown kind and 403 for
// callers who may not control jobs.
func StartJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePrivileged(w, r) {
			return
		}

		kind, err := ParseJobKind(r)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		ctx := r.Context()
		if _, hasDeadline := ctx.Deadline(); !hasDeadline && deps.Config.HandlerTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.Config.HandlerTimeout)
			defer cancel()
		}

		st, err := deps.Jobs.Start(ctx, kind)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		log.Info().
			Str("component", "api").
			Str("job_id", st.ID).
			Str("kind", string(kind)).
			Msg("Job started via API")
		api.WriteJSON(w, http.StatusAccepted, api.JobResponse{Running: true, Job: &st})
	}
}

// CancelJobHandler handles DELETE /api/v1/job
//
// Asks the running worker to terminate. Responds 202; the job is gone once
// the worker exits. 409 when no job is running.
func CancelJobHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePrivileged(w, r) {
			return
		}

		if err := deps.Jobs.Cancel(); err != nil {
			api.WriteError(w, r, err)
			return
		}

		resp := api.JobResponse{Running: true}
		if st, ok := deps.Jobs.Status(); ok {
			resp.Job = &st
		}
		api.WriteJSON(w, http.StatusAccepted, resp)
	}
}

func requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	id, ok := auth.FromContext(r.Context())
	if ok && auth.Privileged(id) {
		return true
	}
	api.WriteJSONError(w, http.StatusForbidden, "Forbidden", "only the admin may control jobs")
	return false
}

func sessionCount(deps *api.Deps) int {
	if deps.Sessions == nil {
		return 0
	}
	return deps.Sessions.Count()
}
