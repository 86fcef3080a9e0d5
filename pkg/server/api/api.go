package api

import (
	"sync/atomic"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// Deps holds dependencies for API handlers.
type Deps struct {
	// Jobs is the single-slot job controller.
	Jobs jobs.Controller

	// Sessions reports connected WebSocket clients.
	Sessions SessionCounter

	// Settings returns the active configuration.
	Settings func() config.Config

	// Config holds handler-level settings.
	Config Config

	// Ready flag for readiness check
	Ready *atomic.Bool
}

// SessionCounter is the subset of the WebSocket registry the API needs.
type SessionCounter interface {
	Count() int
}

// JobResponse is returned by the job endpoints.
type JobResponse struct {
	Running  bool         `json:"running"`
	Job      *jobs.Status `json:"job,omitempty"`
	Sessions int          `json:"sessions,omitempty"`
}
