package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/seqarc/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Prefetch)
	assert.Equal(t, engine.DefaultCacheBlocks, cfg.CacheBlocks)
	assert.Equal(t, engine.FormatBolt, cfg.BuildOptions().Format)
	assert.Equal(t, engine.DefaultBlockSize, cfg.BuildOptions().BlockSize)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
prefetch = true
line_width = 80

[build]
format = "sqlite"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Prefetch)
	assert.Equal(t, 80, cfg.LineWidth)
	assert.Equal(t, engine.FormatSQLite, cfg.BuildOptions().Format)
	assert.Equal(t, engine.DefaultBlockSize, cfg.Build.BlockSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, path, cfg.Path())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":     "prefetch = ",
		"cache":      "cache_blocks = 0",
		"log level":  `log_level = "loud"`,
		"format":     "[build]\nformat = \"tar\"",
		"block size": "[build]\nblock_size = -4",
		"level":      "[build]\nlevel = \"turbo\"",
		"line width": "line_width = -1",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_DiscoversFromParent(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("cache_blocks = 7\n"), 0644))
	t.Chdir(nested)

	found, err := Find()
	require.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(found))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.CacheBlocks)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.Prefetch = true
	cfg.Build.Level = "best"
	require.NoError(t, cfg.Save(path))
	assert.Equal(t, path, cfg.Path())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Prefetch)
	assert.Equal(t, "best", loaded.Build.Level)
}
