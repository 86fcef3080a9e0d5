package httpx

import (
	"net/http"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	v1 "github.com/shelfkeeper/shelfkeeper/pkg/server/api/v1"
)

// NewRouter creates the main HTTP router: health endpoints, the job and
// config API, and the operator WebSocket.
func NewRouter(deps *api.Deps, ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /healthz", HealthzHandler)
	mux.HandleFunc("GET /readyz", v1.ReadyzHandler(deps.Ready))

	// Job control
	mux.HandleFunc("GET /api/v1/job", v1.GetJobHandler(deps))
	mux.HandleFunc("POST /api/v1/jobs/{kind}", v1.StartJobHandler(deps))
	mux.HandleFunc("DELETE /api/v1/job", v1.CancelJobHandler(deps))

	mux.HandleFunc("GET /api/v1/config", v1.GetConfigHandler(deps))

	if ws != nil {
		mux.Handle("GET /ws", ws)
	}

	return mux
}

// HealthzHandler responds with 200 OK if the server process is alive.
// It does not check the job supervisor; use /readyz for that.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
