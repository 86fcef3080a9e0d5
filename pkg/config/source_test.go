package config

import (
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSource_Load(t *testing.T) {
	k := koanf.New(".")
	src := &DefaultSource{}

	require.NoError(t, src.Load(k))
	assert.Equal(t, 10, src.Priority())
	assert.Equal(t, "info", k.String("log.level"))
	assert.Equal(t, "none", k.String("server.auth.mode"))
}

func TestFileSource_Load_MissingFileIsSkipped(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", "/nonexistent/path/shelfkeeper.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, (&FileSource{Path: tt.path}).Load(koanf.New(".")))
		})
	}
}

func TestFileSource_Load_ValidFile(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: warn\nserver:\n  port: 9999\n")

	k := koanf.New(".")
	src := &FileSource{Path: path}
	require.NoError(t, src.Load(k))

	assert.Equal(t, "file:"+path, src.Name())
	assert.Equal(t, "warn", k.String("log.level"))
	assert.Equal(t, 9999, k.Int("server.port"))
}

func TestFileSource_Load_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "log: [unterminated\n")
	require.Error(t, (&FileSource{Path: path}).Load(koanf.New(".")))
}

func TestEnvSource_Load(t *testing.T) {
	t.Setenv("SHELFKEEPER_LOG_LEVEL", "error")
	t.Setenv("SHELFKEEPER_SERVER_PORT", "8888")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{}).Load(k))

	assert.Equal(t, "error", k.String("log.level"))
	assert.Equal(t, 8888, k.Int("server.port"))
}

func TestEnvSource_Load_UnderscoreKeys(t *testing.T) {
	t.Setenv("SHELFKEEPER_LIBRARY_DATA_DIR", "/srv/music/.index")
	t.Setenv("SHELFKEEPER_JOBS_CANCEL_TIMEOUT", "7s")
	t.Setenv("SHELFKEEPER_SERVER_WS_SEND_QUEUE", "64")
	t.Setenv("SHELFKEEPER_SERVER_AUTH_MODE", "none")
	t.Setenv("SHELFKEEPER_CLIENT__TOKEN", "secret-token")

	k := koanf.New(".")
	require.NoError(t, (&EnvSource{}).Load(k))

	assert.Equal(t, "/srv/music/.index", k.String("library.data_dir"))
	assert.Equal(t, "7s", k.String("jobs.cancel_timeout"))
	assert.Equal(t, 64, k.Int("server.ws.send_queue"))
	assert.Equal(t, "none", k.String("server.auth.mode"))
	assert.Equal(t, "secret-token", k.String("client.token"))
}

func TestLoadWithSources_EnvOverridesUnderscoreKeys(t *testing.T) {
	t.Setenv("SHELFKEEPER_LIBRARY_DATA_DIR", "/srv/music/.index")
	t.Setenv("SHELFKEEPER_JOBS_CANCEL_TIMEOUT", "7s")

	manager := NewManager()
	require.NoError(t, manager.LoadWithSources([]ConfigSource{&DefaultSource{}, &EnvSource{}}))

	cfg := manager.Get()
	assert.Equal(t, "/srv/music/.index", cfg.Library.DataDir)
	assert.Equal(t, 7*time.Second, cfg.Jobs.CancelTimeout)
}

func TestFlagSource_Load(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	require.NoError(t, flags.Set("log.level", "debug"))

	k := koanf.New(".")
	require.NoError(t, (&FlagSource{Flags: flags}).Load(k))
	assert.Equal(t, "debug", k.String("log.level"))
}

func TestFlagSource_Load_DebugFlag(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, (&FlagSource{Debug: true}).Load(k))
	assert.Equal(t, "debug", k.String("log.level"))
}

func TestDefaultSources_Order(t *testing.T) {
	sources := DefaultSources("/tmp/shelfkeeper.yaml", nil, false)

	require.Len(t, sources, 4)
	names := []string{}
	for i, src := range sources {
		names = append(names, src.Name())
		if i > 0 {
			assert.Greater(t, src.Priority(), sources[i-1].Priority())
		}
	}
	assert.Equal(t, []string{"defaults", "file:/tmp/shelfkeeper.yaml", "env", "flags"}, names)
}

func TestLoadWithSources_PriorityOrdering(t *testing.T) {
	t.Setenv("SHELFKEEPER_LOG_LEVEL", "warn")

	manager := NewManager()
	err := manager.LoadWithSources([]ConfigSource{
		&EnvSource{},     // priority 30
		&DefaultSource{}, // priority 10, loaded first despite order
	})
	require.NoError(t, err)
	assert.Equal(t, "warn", manager.Get().Log.Level)
}

func TestLoadWithSources_CustomSource(t *testing.T) {
	manager := NewManager()
	err := manager.LoadWithSources([]ConfigSource{
		&DefaultSource{},
		&mockConfigSource{name: "custom", priority: 25, loadFunc: func(k *koanf.Koanf) error {
			return k.Set("library.root", "/custom")
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/custom", manager.Get().Library.Root)
}

type mockConfigSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockConfigSource) Name() string  { return m.name }
func (m *mockConfigSource) Priority() int { return m.priority }
func (m *mockConfigSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}
