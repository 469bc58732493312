package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altocloud-labs/icloud-cli/internal/auth"
)

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, auth.DefaultAuthEndpoint, cfg.Auth.AuthEndpoint)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg := Default()
	cfg.Timezone = "Europe/Amsterdam"
	cfg.RequestTimeout = 45 * time.Second
	cfg.Retry.MaxAttempts = 5
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile),
		[]byte("timezone = \"Europe/Amsterdam\"\n"), 0600))

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Amsterdam", cfg.Timezone)
	assert.Equal(t, auth.DefaultSetupEndpoint, cfg.Auth.SetupEndpoint)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile),
		[]byte("timezone = [broken"), 0600))

	_, err = store.Load()
	assert.Error(t, err)
}
