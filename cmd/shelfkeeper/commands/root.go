package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	jobCmd "github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/commands/job"
	serverCmd "github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/commands/server"
	workerCmd "github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/commands/worker"
	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
	"github.com/shelfkeeper/shelfkeeper/pkg/logging"
	"github.com/shelfkeeper/shelfkeeper/pkg/paths"
)

const cliExecutable = "shelfkeeper"

// NewCommand constructs the top-level shelfkeeper CLI command, wiring global
// flags, configuration loading and the process event bus.
func NewCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Shelfkeeper maintains a media library from a small admin server",
		Long: `Shelfkeeper runs maintenance jobs (scan, update, modify) over a library
directory. The server starts at most one worker process at a time and streams
its progress to every connected WebSocket session.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bind.BindOutputOptions(cmd); err != nil {
				return err
			}

			if configFile == "" {
				configFile = paths.DefaultConfigFile()
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()
			if err := logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			log.Debug().Str("config", configFile).Str("command", cmd.CommandPath()).Msg("configuration loaded")

			ctx := appctx.WithConfig(cmd.Context(), mgr)
			ctx = appctx.WithBus(ctx, event.New())

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/shelfkeeper/shelfkeeper.yaml)")
	bind.BindOutputFlags(cmd.PersistentFlags())

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "server", Title: "Server Commands"})
	cmd.AddGroup(&cobra.Group{ID: "jobs", Title: "Job Commands"})

	cmd.AddCommand(serverCmd.NewCommand())
	cmd.AddCommand(jobCmd.NewCommand())
	cmd.AddCommand(workerCmd.NewCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
