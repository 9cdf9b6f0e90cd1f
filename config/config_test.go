package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoral/convoral/store"
	"github.com/convoral/convoral/store/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convoral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: sqlite
  dsn: /tmp/convoral.db
runner:
  max_handoff_depth: 2
  event_buffer_size: 128
  tool_timeout: 30s
  history_limit: 50
router:
  fallback: triage
  rules:
    - agent: billing
      keywords: [refund, invoice]
    - agent: support
      keywords: [crash]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/convoral.db", cfg.Store.DSN)
	assert.Equal(t, 2, cfg.Runner.MaxHandoffDepth)
	assert.Equal(t, 128, cfg.Runner.EventBufferSize)
	assert.Equal(t, 30*time.Second, cfg.Runner.ToolTimeout)
	assert.Equal(t, 50, cfg.Runner.HistoryLimit)
	assert.Equal(t, "triage", cfg.Router.Fallback)
	require.Len(t, cfg.Router.Rules, 2)
	assert.Equal(t, "billing", cfg.Router.Rules[0].Agent)
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
router:
  fallback: triage
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 1, cfg.Runner.MaxHandoffDepth)
	assert.Equal(t, 64, cfg.Runner.EventBufferSize)
	assert.Equal(t, 15*time.Second, cfg.Runner.ToolTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
runner:
  tool_timeout: soon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "unknown backend"},
		{"sqlite without dsn", func(c *Config) { c.Store.Backend = "sqlite" }, "requires a dsn"},
		{"negative depth", func(c *Config) { c.Runner.MaxHandoffDepth = -1 }, "max_handoff_depth"},
		{"zero buffer", func(c *Config) { c.Runner.EventBufferSize = 0 }, "event_buffer_size"},
		{"rule without agent", func(c *Config) {
			c.Router.Rules = []RouteRule{{Keywords: []string{"x"}}}
		}, "no agent"},
		{"rule without keywords", func(c *Config) {
			c.Router.Rules = []RouteRule{{Agent: "billing"}}
		}, "no keywords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildStore(t *testing.T) {
	memCfg := Default()
	s, err := memCfg.BuildStore()
	require.NoError(t, err)
	_, ok := s.(*store.InMemoryStore)
	assert.True(t, ok)

	dbCfg := Default()
	dbCfg.Store.Backend = "sqlite"
	dbCfg.Store.DSN = filepath.Join(t.TempDir(), "convoral.db")
	s, err = dbCfg.BuildStore()
	require.NoError(t, err)
	dbStore, ok := s.(*sqlite.Store)
	require.True(t, ok)
	dbStore.Close()
}

func TestBuildRouter(t *testing.T) {
	cfg := Default()
	cfg.Router.Fallback = "triage"
	cfg.Router.Rules = []RouteRule{{Agent: "billing", Keywords: []string{"refund"}}}

	r := cfg.BuildRouter()
	assert.Equal(t, "billing", r.Select("refund please"))
	assert.Equal(t, "triage", r.Select("hello"))
}
