package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	url, err := store.Save(7, "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/generated/u7-"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	path, err := store.Open(url)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestRemoveMissingFileIsNotAnError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Remove("/uploads/generated/u1-123.png"))
	assert.NoError(t, store.Remove("not-a-store-path"))
}

func TestRemoveDeletesStoredFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	url, err := store.Save(1, "image/webp", []byte("x"))
	require.NoError(t, err)
	path, err := store.Open(url)
	require.NoError(t, err)

	require.NoError(t, store.Remove(url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	secret := filepath.Join(dir, "..", "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s"), 0o644))

	_, err = store.Open("/uploads/generated/../secret.txt")
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".webp", ExtensionFor("image/webp"))
	assert.Equal(t, ".gif", ExtensionFor("image/gif"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".png", ExtensionFor("application/octet-stream"))
}
