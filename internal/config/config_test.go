package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("policy: area-order-id\nworkers: 8\nallow_boundary: true\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "area-order-id", cfg.Policy)
		assert.Equal(t, 8, cfg.Workers)
		assert.True(t, cfg.AllowBoundary)
		assert.Equal(t, "json", cfg.Format)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("absent default file keeps defaults", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("invalid values", func(t *testing.T) {
		for name, body := range map[string]string{
			"policy":  "policy: longest\n",
			"workers": "workers: 0\n",
			"format":  "format: xml\n",
			"yaml":    "workers: [\n",
		} {
			t.Run(name, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
				_, err := Load(path)
				require.Error(t, err)
			})
		}
	})
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Debug = true
	want.Format = "msgpack"
	want.Schema = "/data/schema.yaml"

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
