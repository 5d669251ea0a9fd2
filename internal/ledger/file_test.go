package ledger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csk-sniffer/imagefetch/internal/ledger"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_history.json")
	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)

	saved := ledger.State{
		TriedURLs: []string{"https://img.example/a", "https://img.example/b"},
		Assets:    map[string]string{"fp-1": "Image1.png"},
	}
	require.NoError(t, store.Save(context.Background(), saved))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// No temp file remains after the atomic replace.
	assert.NoFileExists(t, path+".tmp")
}

func TestFileStoreMissingFileIsNotFound(t *testing.T) {
	store, err := ledger.NewFileStore(filepath.Join(t.TempDir(), "download_history.json"))
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestFileStoreCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrNotFound)
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "download_history.json")
	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), ledger.State{
		Assets: map[string]string{},
	}))
	assert.FileExists(t, path)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := ledger.NewFileStore("")
	require.Error(t, err)
}
