package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "tapp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreEmpty(t *testing.T) {
	store := openTestSQLite(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoConfiguration)
	assert.False(t, HasConfig(store))
}

func TestSQLiteStoreSaveOverwrites(t *testing.T) {
	store := openTestSQLite(t)

	cfg := fullConfig()
	require.NoError(t, store.Save(cfg))

	cfg.AppToken = "secret"
	cfg.HasProcessedReferralEngine = true
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.AppToken)
	assert.True(t, loaded.HasProcessedReferralEngine)
	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.True(t, loaded.HasOriginLink())
	assert.Equal(t, Data{"campaign": "spring"}, loaded.OriginData)

	var rows int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapp.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(fullConfig()))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	loaded, err := second.Load()
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", loaded.BundleID)
}

func TestSQLiteStoreClear(t *testing.T) {
	store := openTestSQLite(t)
	require.NoError(t, store.Save(fullConfig()))
	require.NoError(t, store.Clear())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoConfiguration)
}

func TestSQLiteStoreUpdate(t *testing.T) {
	store := openTestSQLite(t)
	require.NoError(t, store.Save(fullConfig()))

	_, err := Update(store, func(c *Configuration) { c.DeviceID = "device-9" })
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "device-9", loaded.DeviceID)
}
