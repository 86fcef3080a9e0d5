// Package server holds process-level helpers for the shelfkeeper server:
// error codes for the CLI and operating system signal handling.
package server

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
)

// WithShutdownSignals returns a context that is cancelled on the first
// interrupt or termination signal.
func WithShutdownSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals()...)
}

// HandleReloadSignals calls reload for every reload signal until ctx ends.
// It returns immediately on platforms without a reload signal.
func HandleReloadSignals(ctx context.Context, reload func() error, logger zerolog.Logger) {
	sigs := reloadSignals()
	if len(sigs) == 0 {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			logger.Info().Str("signal", sig.String()).Msg("Reloading configuration")
			if err := reload(); err != nil {
				logger.Error().Err(err).Msg("Configuration reload failed")
			}
		}
	}
}
