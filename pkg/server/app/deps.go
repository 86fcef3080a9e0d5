package app

import (
	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// Deps holds dependencies for the server application.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Config manager for runtime configuration. When set and backed by a
	// file, the file is watched and reloads are published on Bus.
	Config *config.Manager

	// Bus carries runtime notifications such as config reloads.
	// A private bus is created when nil.
	Bus *event.Bus

	// Launcher starts worker processes. Defaults to re-executing this
	// binary as "shelfkeeper worker <kind>".
	Launcher jobs.Launcher

	// Logger for structured logging (injected by caller)
	Logger zerolog.Logger
}
