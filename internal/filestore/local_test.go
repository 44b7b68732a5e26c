package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tenantrag/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)

	key := ObjectKey("tenant 1", "notes.md")
	require.Equal(t, "tenant_1/notes.md", key)
	data := []byte("# stock\napples")
	require.NoError(t, store.Save(context.Background(), key, bytes.NewReader(data), int64(len(data))))

	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := &localStore{dir: t.TempDir()}
	err := store.Save(context.Background(), "../escape", bytes.NewReader(nil), 0)
	require.Error(t, err)
}

func TestNewNone(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "none"})
	require.NoError(t, err)
	require.Nil(t, store)

	_, err = New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestObjectKeySanitizes(t *testing.T) {
	require.Equal(t, "a_b/_._x", ObjectKey("a/b", "../../x"))
	require.Equal(t, "_/_", ObjectKey("", ""))
}
