// pkg/config/config.go
package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Manager handles loading and accessing application configuration.
// Every load starts from a fresh koanf instance so that keys removed from
// the config file disappear on reload.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	sources       []ConfigSource
	mu            sync.RWMutex // To protect currentConfig during runtime updates
}

// NewManager creates a new Manager.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: DefaultServerConfig(),
		Jobs: JobsConfig{
			CancelTimeout: 30 * time.Second,
			RefreshAll:    true,
		},
		Library: LibraryConfig{
			Root:    ".",
			DataDir: ".shelfkeeper",
		},
		Client: ClientConfig{
			Server: "http://127.0.0.1:8080",
		},
	}
}

// Load loads configuration from defaults, the optional YAML file, the
// SHELFKEEPER_ environment and flags, in that order of precedence.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if debugFlag := flags.Lookup("debug"); debugFlag != nil && debugFlag.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads the given sources in ascending priority order and
// remembers them for Reload.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.koanfInstance = k
	m.currentConfig = newCfg
	m.sources = ordered
	return nil
}

// Reload re-reads the sources used by the last successful load.
func (m *Manager) Reload() error {
	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()

	if len(sources) == 0 {
		return fmt.Errorf("config manager: nothing loaded yet")
	}
	return m.LoadWithSources(sources)
}

// ConfigFile returns the path of the file source, if any.
func (m *Manager) ConfigFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, src := range m.sources {
		if fs, ok := src.(*FileSource); ok {
			return fs.Path
		}
	}
	return ""
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// ReloadValidated reloads the sources and validates the result. On any
// failure the previous configuration stays in effect.
func (m *Manager) ReloadValidated() (Config, error) {
	previous := m.Get()
	if err := m.Reload(); err != nil {
		return previous, err
	}

	cfg := m.Get()
	if err := cfg.Validate(); err != nil {
		m.restore(previous)
		return previous, fmt.Errorf("reloaded config is invalid: %w", err)
	}
	return cfg, nil
}

func (m *Manager) restore(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentConfig = cfg
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map for koanf's
// confmap.Provider so that koanf knows every scalar key.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		// Log configuration
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,

		// Server configuration
		"server.addr":          def.Server.Addr,
		"server.port":          def.Server.Port,
		"server.read_timeout":  def.Server.ReadTimeout,
		"server.write_timeout": def.Server.WriteTimeout,
		"server.auth.mode":     def.Server.Auth.Mode,
		"server.ws.send_queue": def.Server.WS.SendQueue,

		// Jobs configuration
		"jobs.worker_path":    def.Jobs.WorkerPath,
		"jobs.cancel_timeout": def.Jobs.CancelTimeout,
		"jobs.refresh_all":    def.Jobs.RefreshAll,

		// Library configuration
		"library.root":     def.Library.Root,
		"library.data_dir": def.Library.DataDir,

		// Client configuration
		"client.server": def.Client.Server,
	}
}

// BindFlags defines global command-line flags corresponding to configuration settings.
// The --config flag itself lives on the root command.
func BindFlags(flags *pflag.FlagSet) {
	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")
}
