package config

import "github.com/spf13/pflag"

// BindLibraryFlags binds the library.* flags shared by the server and the
// worker command.
func BindLibraryFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig().Library

	flags.String("library.root", defaults.Root, "Library root directory")
	flags.String("library.data_dir", defaults.DataDir, "Index directory (relative paths resolve against library.root)")
	flags.StringSlice("library.extensions", defaults.Extensions, "File extensions to index, comma separated (empty: all)")
}

// BindJobsFlags binds the jobs.* flags used by 'server start'.
func BindJobsFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig().Jobs

	flags.String("jobs.worker_path", defaults.WorkerPath, "Worker executable (empty: this binary)")
	flags.Duration("jobs.cancel_timeout", defaults.CancelTimeout, "Kill a cancelled worker after this long (0 disables)")
	flags.Bool("jobs.refresh_all", defaults.RefreshAll, "Run update jobs in full-refresh mode")
}

// BindClientFlags binds the client.* flags used by the job commands.
func BindClientFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig().Client

	flags.String("client.server", defaults.Server, "Base URL of the shelfkeeper server")
	flags.String("client.token", "", "Bearer token (or SHELFKEEPER_CLIENT_TOKEN)")
}
