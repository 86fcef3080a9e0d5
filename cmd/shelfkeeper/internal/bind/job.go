package bind

import (
	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	srv "github.com/shelfkeeper/shelfkeeper/pkg/server"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// BindClientOptions returns the client.* settings used to reach a server.
func BindClientOptions(cmd *cobra.Command) (config.ClientConfig, error) {
	mgr, ok := appctx.Config(cmd.Context())
	if !ok {
		return config.ClientConfig{}, srv.ErrConfigUnavailable
	}
	return mgr.Get().Client, nil
}

// BindJobKind parses the single positional job kind argument.
func BindJobKind(args []string) (jobs.Kind, error) {
	if len(args) != 1 {
		return "", jobs.ErrUnknownKind
	}
	return jobs.ParseKind(args[0])
}
