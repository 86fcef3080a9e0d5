// Package job provides the 'shelfkeeper job' commands, a thin client for a
// running server.
package job

import (
	"errors"
	"net"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/client"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/logging"
	srv "github.com/shelfkeeper/shelfkeeper/pkg/server"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// NewCommand returns the 'shelfkeeper job' command group.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "job",
		Short:   "Start, cancel and follow maintenance jobs on a server",
		GroupID: "jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	command.SuggestionsMinimumDistance = 1
	config.BindClientFlags(command.PersistentFlags())

	command.AddCommand(newStartCommand())
	command.AddCommand(newCancelCommand())
	command.AddCommand(newStatusCommand())
	command.AddCommand(newWatchCommand())

	return command
}

// newClient builds an API client from the client.* settings.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := bind.BindClientOptions(cmd)
	if err != nil {
		return nil, err
	}

	level := "error"
	if mgr, ok := appctx.Config(cmd.Context()); ok {
		level = mgr.Get().Log.Level
	}
	logger := logging.NewLogger("client", logging.ParseLevel(level))

	c, err := client.New(client.FromConfig(cfg, logger))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// errorCode picks the suggestion key for a failed job command.
func errorCode(err error) string {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, client.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, srv.ErrConfigUnavailable):
		return srv.ErrorCode(err)
	}

	if code := jobs.ErrorCode(err); code != "INTERNAL_ERROR" {
		return code
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return "SERVER_UNREACHABLE"
	}
	return "INTERNAL_ERROR"
}
