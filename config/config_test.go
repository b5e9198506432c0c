package config

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/justext/justify"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "justext.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeFile(t, `
[justify]
seed = 42
thin_space = "·"
max_fill = 12

[text]
width = 60
frame = true

[layout]
jobs = 3

[cache]
dir = "/tmp/justext"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Justify.Seed)
	assert.Equal(t, int64(42), *cfg.Justify.Seed)
	assert.Equal(t, "·", cfg.Justify.ThinSpace)
	assert.Equal(t, 12, cfg.Justify.MaxFill)
	assert.Equal(t, TextConfig{Width: 60, Frame: true}, cfg.Text)
	assert.Equal(t, 3, cfg.Layout.Jobs)
	assert.Equal(t, "/tmp/justext", cfg.Cache.Dir)

	j := justify.New(justify.MeasureFunc(func(s string) float64 {
		return float64(utf8.RuneCountInString(s))
	}), cfg.Options()...)
	assert.True(t, j.Seeded())
	assert.Equal(t, uint64(42), j.Seed())
	assert.Equal(t, "·", j.ThinSpace())
}

func TestLoadMissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
	assert.Empty(t, cfg.Options())

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeFile(t, "[justify]\nseed = -1\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "[text]\nwidth = -4\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "[justify]\nunknown = 1\n"))
	require.Error(t, err)
}

func TestSetSeedOverridesFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "[justify]\nseed = 1\n"))
	require.NoError(t, err)
	cfg.SetSeed(9)
	j := justify.New(justify.MeasureFunc(func(string) float64 { return 0 }), cfg.Options()...)
	assert.Equal(t, uint64(9), j.Seed())
}
