package platform_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebox/internal/platform"
	"github.com/aretw0/notebox/pkg/workspace"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), platform.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults Without File", func(t *testing.T) {
		cfg, err := platform.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, platform.DefaultConfig(), cfg)
	})

	t.Run("Reads File And Resolves Paths", func(t *testing.T) {
		path := writeConfig(t, `
workspace: data
policy: nested
notes_dir: journal
sort: name
read_only: true
listen: ":9000"
log_level: debug
`)
		cfg, err := platform.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(filepath.Dir(path), "data"), cfg.Workspace)
		assert.Equal(t, "nested", cfg.Policy)
		assert.Equal(t, "journal", cfg.NotesDir)
		assert.Equal(t, "name", cfg.Sort)
		assert.True(t, cfg.ReadOnly)
		assert.Equal(t, ":9000", cfg.Listen)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("Expands Variables", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("NOTEBOX_TEST_AGENTS", dir)
		path := writeConfig(t, "agents_dir: ${NOTEBOX_TEST_AGENTS}\nworkspace: ${NOTEBOX_TEST_UNSET:-/srv/notes}\n")

		cfg, err := platform.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.AgentsDir)
		assert.Equal(t, "/srv/notes", cfg.Workspace)
	})

	t.Run("Rejects Invalid Values", func(t *testing.T) {
		tests := map[string]string{
			"Policy":        "policy: both\n",
			"Sort":          "sort: size\n",
			"Log Level":     "log_level: loud\n",
			"Notes Dir":     "notes_dir: ../up\n",
			"Default Agent": "default_agent: two words\n",
			"Syntax":        "policy: [\n",
		}
		for name, body := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := platform.LoadConfig(writeConfig(t, body))
				assert.Error(t, err)
			})
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := platform.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestConfigPath(t *testing.T) {
	t.Setenv(platform.ConfigEnv, "/etc/notebox.yaml")
	assert.Equal(t, "flag.yaml", platform.ConfigPath("flag.yaml"))
	assert.Equal(t, "/etc/notebox.yaml", platform.ConfigPath(""))
}

func TestConfig_Roots(t *testing.T) {
	cfg := platform.DefaultConfig()
	cfg.Workspace = t.TempDir()
	roots, err := cfg.Roots()
	require.NoError(t, err)
	assert.IsType(t, &workspace.Static{}, roots)

	cfg.AgentsDir = t.TempDir()
	roots, err = cfg.Roots()
	require.NoError(t, err)
	root, err := roots.Root(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.AgentsDir, "alice"), root)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := platform.ParseLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
