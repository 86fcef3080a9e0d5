package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/format"
	"github.com/shelfkeeper/shelfkeeper/pkg/client"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
)

func newStartCommand() *cobra.Command {
	var follow bool

	kinds := make([]string, 0, len(jobs.Kinds()))
	for _, k := range jobs.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       fmt.Sprintf("start <%s>", strings.Join(kinds, "|")),
		Short:     "Start a maintenance job",
		Long:      `Ask the server to start a job. Only the admin user may start jobs, and only one job runs at a time.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		Example: `  shelfkeeper job start scan
  shelfkeeper job start update --follow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)
			operation := "start job"

			kind, err := bind.BindJobKind(args)
			if err != nil {
				return formatter.PrintTotalFailureSummary(operation, err, errorCode(err))
			}
			operation = "start " + string(kind) + " job"

			c, err := newClient(cmd)
			if err != nil {
				return formatter.PrintTotalFailureSummary(operation, err, errorCode(err))
			}

			if !follow {
				st, err := c.StartJob(cmd.Context(), kind)
				if err != nil {
					return formatter.PrintTotalFailureSummary(operation, err, errorCode(err))
				}
				return formatter.PrintSuccessSummary("started "+string(kind)+" job", st.ID, map[string]any{"pid": st.PID})
			}

			// Subscribe before starting so the first events are not missed.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			session, err := c.Dial(ctx)
			if err != nil {
				return formatter.PrintTotalFailureSummary(operation, err, errorCode(err))
			}
			defer session.Close()

			if _, err := c.StartJob(ctx, kind); err != nil {
				return formatter.PrintTotalFailureSummary(operation, err, errorCode(err))
			}

			if err := session.Follow(ctx, followHandler(cmd, formatter)); err != nil {
				return formatter.PrintTotalFailureSummary("follow job", err, errorCode(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream job events until the job ends")

	return cmd
}

// followHandler renders events until the job ends. In JSON mode every event
// is printed as one JSON document.
func followHandler(cmd *cobra.Command, formatter format.Formatter) func(ws.Envelope) error {
	renderer := client.NewRenderer(cmd.OutOrStdout(), formatter.Color())
	return func(env ws.Envelope) error {
		if formatter.IsJSON() {
			if err := formatter.PrintJSON(env); err != nil {
				return err
			}
		} else {
			renderer.Render(env)
		}
		if client.Terminal(env.Event) {
			return client.ErrStopWatching
		}
		return nil
	}
}
