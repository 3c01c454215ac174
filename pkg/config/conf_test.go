package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), c1)

	c1.Upstream = "http://localhost:9999"
	c1.CacheTTL = 5 * time.Minute
	c1.CacheDSN = "redis://localhost:6379/0"
	c1.RankingKinds = []string{"best"}

	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestReadOrCreate_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "conf")
	_, err := ReadOrCreate(dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, configFileName))
	assert.NoError(t, err)
}

func TestReadOrCreate_FillsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("upstream: http://x\nrate_limit: -3\n"), fileMode))

	c, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://x", c.Upstream)
	assert.Equal(t, defaultCacheTTL, c.CacheTTL)
	assert.Equal(t, defaultRecentWindowDays, c.RecentWindowDays)
	assert.Equal(t, 180*24*time.Hour, c.RecentWindow())
	assert.Zero(t, c.RateLimit)
	assert.NotEmpty(t, c.RankingKinds)
}

func TestReadOrCreate_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("upstream: [\n"), fileMode))

	_, err := ReadOrCreate(dir)
	assert.Error(t, err)
}

func TestReadOrCreate_EmptyDir(t *testing.T) {
	_, err := ReadOrCreate("")
	assert.Error(t, err)
}

func TestSave_Validation(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(t.TempDir(), nil))
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, created, err := GetOrCreateHomeDir("creatorpulse-test")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".creatorpulse-test", filepath.Base(dir))

	_, created, err = GetOrCreateHomeDir(".creatorpulse-test")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = GetOrCreateHomeDir("")
	assert.Error(t, err)
}
