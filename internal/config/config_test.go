package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the home directory and working directory at fresh temp
// dirs so no real config is read or written.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home, work = t.TempDir(), t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(work)
	return home, work
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, filepath.Join(Dir, "resource.db"), cfg.StoragePath())
}

func TestStoragePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendAtomic
	assert.Equal(t, filepath.Join(Dir, "resource.json"), cfg.StoragePath())
	cfg.Storage.Backend = BackendFile
	assert.Equal(t, filepath.Join(Dir, "commits"), cfg.StoragePath())
	cfg.Storage.Path = "elsewhere"
	assert.Equal(t, "elsewhere", cfg.StoragePath())
}

func TestRepoOverridesGlobal(t *testing.T) {
	home, _ := isolate(t)

	require.NoError(t, SetValue("merge.resolver", ResolverLWW, true))
	require.NoError(t, SetValue("log.level", "debug", true))
	require.NoError(t, SetValue("log.level", "error", false))

	_, err := os.Stat(filepath.Join(home, ".forkedconfig"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(Dir, "config"))
	require.NoError(t, err)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ResolverLWW, cfg.Merge.Resolver)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
	assert.Equal(t, BackendBolt, cfg.Storage.Backend)

	v, err := GetValue("log.level")
	require.NoError(t, err)
	assert.Equal(t, "error", v)
}

func TestSetValueValidates(t *testing.T) {
	isolate(t)

	assert.Error(t, SetValue("storage.backend", "postgres", false))
	assert.Error(t, SetValue("merge.resolver", "coinflip", false))
	assert.Error(t, SetValue("log.level", "chatty", false))
	assert.Error(t, SetValue("storage", "x", false))
	assert.Error(t, SetValue("nope.key", "x", false))
	assert.Error(t, SetValue("storage.colour", "x", false))

	require.NoError(t, SetValue("storage.backend", BackendFile, false))
	require.NoError(t, SetValue("storage.path", "data", false))
	v, err := GetValue("storage.backend")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, v)
	v, err = GetValue("storage.path")
	require.NoError(t, err)
	assert.Equal(t, "data", v)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.MkdirAll(Dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(Dir, "config"), []byte("{not json"), 0644))

	_, err := LoadConfig()
	assert.Error(t, err)
}
