package bind

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OutputOptions selects how command results are printed.
type OutputOptions struct {
	Mode    string `validate:"oneof=table json"`
	Quiet   bool
	NoColor bool
}

var validate = validator.New()

// BindOutputFlags registers --output, --quiet and --no-color.
func BindOutputFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", "table", "Output format: table|json")
	flags.BoolP("quiet", "q", false, "Print only essential output")
	flags.Bool("no-color", false, "Disable colored output (also NO_COLOR)")
}

// BindOutputOptions reads the output flags. Commands without them get the
// table defaults. A set NO_COLOR environment variable disables color.
func BindOutputOptions(cmd *cobra.Command) (OutputOptions, error) {
	opts := OutputOptions{Mode: "table"}
	flags := cmd.Flags()

	if flags.Lookup("output") != nil {
		mode, err := flags.GetString("output")
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}
	if flags.Lookup("quiet") != nil {
		quiet, err := flags.GetBool("quiet")
		if err != nil {
			return opts, err
		}
		opts.Quiet = quiet
	}
	if flags.Lookup("no-color") != nil {
		noColor, err := flags.GetBool("no-color")
		if err != nil {
			return opts, err
		}
		opts.NoColor = noColor
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		opts.NoColor = true
	}

	if err := validate.Struct(opts); err != nil {
		return OutputOptions{Mode: "table", Quiet: opts.Quiet, NoColor: opts.NoColor},
			fmt.Errorf("invalid output mode: %s (must be 'json' or 'table')", opts.Mode)
	}
	return opts, nil
}
