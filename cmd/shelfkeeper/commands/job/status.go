package job

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/format"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			c, err := newClient(cmd)
			if err != nil {
				return formatter.PrintTotalFailureSummary("get job status", err, errorCode(err))
			}
			resp, err := c.Job(cmd.Context())
			if err != nil {
				return formatter.PrintTotalFailureSummary("get job status", err, errorCode(err))
			}

			if formatter.IsJSON() {
				return formatter.PrintJSON(resp)
			}
			if !resp.Running || resp.Job == nil {
				return formatter.PrintSummary("No job is running")
			}
			return formatter.PrintTable(statusTable(resp))
		},
	}
}

func statusTable(resp api.JobResponse) ([]string, [][]string) {
	st := resp.Job
	state := "running"
	if st.Cancelling {
		state = "cancelling"
	}

	row := []string{
		st.ID,
		string(st.Kind),
		fmt.Sprint(st.PID),
		state,
		fmt.Sprintf("%.0f%%", st.Progress),
		time.Since(st.StartedAt).Truncate(time.Second).String(),
		fmt.Sprint(resp.Sessions),
	}
	return []string{"id", "kind", "pid", "state", "progress", "running", "sessions"}, [][]string{row}
}
