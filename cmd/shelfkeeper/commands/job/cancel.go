package job

import (
	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/format"
)

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running job",
		Long: `Ask the running worker to terminate. The worker finishes its current item,
reports SCAN_CANCELLED and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			c, err := newClient(cmd)
			if err != nil {
				return formatter.PrintTotalFailureSummary("cancel job", err, errorCode(err))
			}
			if err := c.CancelJob(cmd.Context()); err != nil {
				return formatter.PrintTotalFailureSummary("cancel job", err, errorCode(err))
			}
			return formatter.PrintSuccessSummary("cancel requested", "", map[string]any{"cancelling": true})
		},
	}
}
