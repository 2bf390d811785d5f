package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	body := []byte("sealed bytes")
	err := store.Put(ctx, "backups/a.seal", bytes.NewReader(body), PackageInfo{
		Salt:        "c2FsdA==",
		Fingerprint: "ZnA=",
	})
	require.NoError(t, err)

	rc, info, err := store.Get(ctx, "backups/a.seal")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	assert.Equal(t, "backups/a.seal", info.Name)
	assert.Equal(t, "c2FsdA==", info.Salt)
	assert.Equal(t, "ZnA=", info.Fingerprint)
	assert.Equal(t, int64(len(body)), info.Size)
	assert.False(t, info.CreatedAt.IsZero())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemory()
	_, _, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x", bytes.NewReader([]byte("d")), PackageInfo{}))
	require.NoError(t, store.Delete(ctx, "x"))

	_, _, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "x"), ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for _, name := range []string{"team-a/one", "team-a/two", "team-b/three"} {
		require.NoError(t, store.Put(ctx, name, bytes.NewReader([]byte(name)), PackageInfo{}))
	}

	infos, err := store.List(ctx, "team-a/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "team-a/one", infos[0].Name)
	assert.Equal(t, "team-a/two", infos[1].Name)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore_PutOverwrites(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x", bytes.NewReader([]byte("first")), PackageInfo{}))
	require.NoError(t, store.Put(ctx, "x", bytes.NewReader([]byte("second")), PackageInfo{}))

	rc, info, err := store.Get(ctx, "x")
	require.NoError(t, err)
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	assert.Equal(t, []byte("second"), got)
	assert.Equal(t, int64(6), info.Size)
}
