package job

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/format"
	"github.com/shelfkeeper/shelfkeeper/pkg/client"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
)

func newWatchCommand() *cobra.Command {
	var untilDone bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream job events from the server",
		Long: `Open a WebSocket session, replay the state of the running job and print
every event. Runs until interrupted unless --until-done is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			c, err := newClient(cmd)
			if err != nil {
				return formatter.PrintTotalFailureSummary("watch jobs", err, errorCode(err))
			}

			handle := followHandler(cmd, formatter)
			if !untilDone {
				next := handle
				handle = func(env ws.Envelope) error {
					if err := next(env); err != nil && !errors.Is(err, client.ErrStopWatching) {
						return err
					}
					return nil
				}
			}

			if err := c.Watch(cmd.Context(), handle); err != nil {
				return formatter.PrintTotalFailureSummary("watch jobs", err, errorCode(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Exit after the current job ends")

	return cmd
}
