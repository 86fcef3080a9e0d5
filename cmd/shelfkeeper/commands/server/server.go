// Package server provides the Cobra commands for the shelfkeeper server lifecycle.
package server

import (
	"github.com/spf13/cobra"
)

const cliExecutable = "server"

// NewCommand returns the 'shelfkeeper server' command group.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     cliExecutable,
		Short:   "Shelfkeeper admin server",
		GroupID: "server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	command.SuggestionsMinimumDistance = 1

	// Subcommands
	command.AddCommand(newStartServerCommand())

	return command
}
