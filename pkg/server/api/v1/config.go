package v1

import (
	"net/http"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
)

// GetConfigHandler handles GET /api/v1/config
//
// Returns the effective configuration. User tokens never leave the server:
// config.UserConfig omits them from JSON.
func GetConfigHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Settings == nil {
			api.WriteJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "configuration not available")
			return
		}
		api.WriteJSON(w, http.StatusOK, deps.Settings())
	}
}
