package format

import (
	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
)

// FromCommand builds a Formatter on the command's writers. An invalid
// --output value was already rejected by the root command, so it falls
// back to a table here.
func FromCommand(cmd *cobra.Command) Formatter {
	opts, _ := bind.BindOutputOptions(cmd)
	return New(cmd.OutOrStdout(), cmd.ErrOrStderr(), ParseMode(opts.Mode), opts.Quiet, !opts.NoColor)
}
