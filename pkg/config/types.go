// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for shelfkeeper.
type Config struct {
	Log     LogConfig     `description:"Logging configuration" json:"log" koanf:"log"`
	Server  ServerConfig  `description:"Server configuration" json:"server" koanf:"server"`
	Jobs    JobsConfig    `description:"Maintenance job configuration" json:"jobs" koanf:"jobs"`
	Library LibraryConfig `description:"Library configuration" json:"library" koanf:"library"`
	Client  ClientConfig  `description:"Settings of the job commands" json:"client" koanf:"client"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level" json:"level" koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" json:"format" koanf:"format" validate:"omitempty,oneof=json text"`
}

// ServerConfig holds configuration for the admin server runtime.
// Used by 'shelfkeeper server start'.
type ServerConfig struct {
	// Network settings
	Addr string `description:"Server listen address" json:"addr" koanf:"addr" validate:"required"`
	Port int    `description:"Server listen port" json:"port" koanf:"port" validate:"min=1,max=65535"`

	// HTTP timeouts
	ReadTimeout  time.Duration `description:"HTTP read timeout" json:"read_timeout" koanf:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `description:"HTTP write timeout" json:"write_timeout" koanf:"write_timeout" validate:"min=0"`

	// Sub-configurations
	Auth AuthConfig `description:"Authentication configuration" json:"auth" koanf:"auth"`
	WS   WSConfig   `description:"WebSocket configuration" json:"ws" koanf:"ws"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode  string       `description:"Authentication mode: none|token" json:"mode" koanf:"mode" validate:"oneof=none token"`
	Users []UserConfig `description:"Known operators and their bearer tokens" json:"users" koanf:"users" validate:"required_if=Mode token,dive"`
}

// UserConfig maps a bearer token to an operator identity.
type UserConfig struct {
	Name  string `json:"name" koanf:"name" validate:"required"`
	Group string `json:"group" koanf:"group" validate:"required,oneof=admin user guest"`
	Token string `json:"-" koanf:"token" validate:"required,min=8"`
}

// WSConfig holds WebSocket session settings.
type WSConfig struct {
	SendQueue      int      `description:"Per-session outbound queue length" json:"send_queue" koanf:"send_queue" validate:"min=1"`
	AllowedOrigins []string `description:"Allowed Origin headers (empty: same host only)" json:"allowed_origins" koanf:"allowed_origins"`
}

// JobsConfig holds worker process settings.
type JobsConfig struct {
	WorkerPath    string        `description:"Worker executable (empty: this binary)" json:"worker_path" koanf:"worker_path"`
	CancelTimeout time.Duration `description:"Kill a cancelled worker after this long (0 disables)" json:"cancel_timeout" koanf:"cancel_timeout" validate:"min=0"`
	RefreshAll    bool          `description:"Run update jobs in full-refresh mode" json:"refresh_all" koanf:"refresh_all"`
}

// LibraryConfig describes the dataset the workers maintain.
type LibraryConfig struct {
	Root       string   `description:"Library root directory" json:"root" koanf:"root"`
	DataDir    string   `description:"Directory holding the library index" json:"data_dir" koanf:"data_dir"`
	Extensions []string `description:"File extensions to index (empty: all)" json:"extensions" koanf:"extensions"`
}

// ClientConfig is used by the 'shelfkeeper job' commands to reach a server.
type ClientConfig struct {
	Server string `description:"Base URL of the shelfkeeper server" json:"server" koanf:"server" validate:"required,url"`
	Token  string `description:"Bearer token" json:"-" koanf:"token"`
}
